package shipping

import "errors"

// ErrUnknownMethod indicates the requested shipping code is not offered.
var ErrUnknownMethod = errors.New("unknown shipping method")

// Method is one shipping option with a flat fee in minor units.
type Method struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Fee      int64  `json:"fee"`
	Estimate string `json:"estimate"`
}

// The offered methods are a static table for now; rates are flat and do not
// depend on destination or weight.
var methods = []Method{
	{Code: "standard", Label: "Standard", Fee: 2000, Estimate: "2-4 business days"},
	{Code: "express", Label: "Express", Fee: 4500, Estimate: "1-2 business days"},
	{Code: "pickup", Label: "Store pickup", Fee: 0, Estimate: "same day"},
}

// Methods returns the offered shipping options.
func Methods() []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	return out
}

// ByCode resolves a shipping method by its code.
func ByCode(code string) (Method, error) {
	for _, m := range methods {
		if m.Code == code {
			return m, nil
		}
	}
	return Method{}, ErrUnknownMethod
}
