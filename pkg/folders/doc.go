// Package folders manages saved patents organized into folders and workfiles.
//
// A folder belongs to one user and may have subfolders. Patent numbers live in workfiles inside a
// folder; older folders also carry a flat list of their own. Every number is passed through
// StandardizePatentNumber before it is stored, so "US 10,123,456 B2" and "us10123456b2" are the
// same entry and a workfile never holds duplicates.
//
// Imported lists (.txt, .csv, .xlsx, .docx) are scanned for patent numbers and the original
// upload is kept in object storage.
package folders
