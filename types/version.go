// Package types defines core domain types for the xray client.
//
//nolint:revive // types is a common Go package naming convention
package types

// Version is the canonical project version.
const Version = "0.3.0"

// ContractVersion is the version of the completion notification payload.
// It moves in lockstep with Version.
const ContractVersion = Version
