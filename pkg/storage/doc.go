// Package storage connects the PatentDesk backing stores.
//
// The postgres subpackage owns the relational schema, objectstore holds uploaded import
// files, and NewRedisClient opens the Redis client shared by the OTP store, the rate
// limiter and the readiness check.
package storage
