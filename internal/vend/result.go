package vend

import "github.com/dledlow/unitystation/internal/model"

// ResultCode classifies the outcome of a vend attempt. All outcomes
// are normal flow, not errors: callers branch on the code, nothing is
// thrown.
type ResultCode int8

const (
	// ResultRejected — invalid slot or exhausted stock. Nothing changed.
	ResultRejected ResultCode = 0
	// ResultCooldownActive — the actor is rate-limited. Nothing changed.
	ResultCooldownActive ResultCode = 1
	// ResultSuccess — stock was decremented and the item dispensed.
	ResultSuccess ResultCode = 2
)

// String returns human-readable result code name.
func (c ResultCode) String() string {
	switch c {
	case ResultRejected:
		return "Rejected"
	case ResultCooldownActive:
		return "CooldownActive"
	case ResultSuccess:
		return "Success"
	default:
		return "Unknown"
	}
}

// VendResult is the outcome of a single vend attempt. Item is set only
// on success.
type VendResult struct {
	Code ResultCode
	Item model.ItemRef
}

// Succeeded reports whether the attempt dispensed an item.
func (r VendResult) Succeeded() bool {
	return r.Code == ResultSuccess
}
