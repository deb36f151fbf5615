package cod

import "errors"

var (
	ErrPincodeNotServiceable = errors.New("cod is not serviceable at this pincode")
	ErrAmountExceedsCeiling  = errors.New("order value exceeds the customer's cod ceiling")
	ErrUnknownOutcome        = errors.New("unknown order outcome")
)
