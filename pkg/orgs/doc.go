// Package orgs manages organizations, their members and invite links.
//
// # Overview
//
// An organization has exactly one admin: the user who created it. The admin invites members
// with single use links that expire after seven days, and is the only one who may remove
// members or pay for the organization. The organization row carries a snapshot of the admin's
// current organization plan so member access can be checked without reading the ledger.
//
// # Usage Example
//
//	org, err := service.CreateOrganization(ctx, adminID, orgs.CreateOrganizationRequest{Name: "Acme IP"})
//
//	invite, err := service.GenerateInvite(ctx, adminID)
//	fmt.Println(invite.URL)
//
//	err = service.JoinOrganization(ctx, invite.Token, memberID)
//
// # Related Packages
//
//   - pkg/auth: signup with an invite token
//   - pkg/billing: organization plan pricing and snapshot updates
package orgs
