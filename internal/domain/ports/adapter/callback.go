package adapter

import "encoding/json"

// CallbackEnvelope mirrors the provider's webhook body:
//
//	{"Body":{"stkCallback":{...}}}
type CallbackEnvelope struct {
	Body struct {
		StkCallback *StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// MetadataItem is one name/value pair from the callback metadata list. The
// list carries no fixed order; consumers must look up by name.
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// ParseCallback decodes the raw webhook body. A decode failure or a missing
// stkCallback object both return (nil, false); the caller acknowledges these
// as rejected without raising.
func ParseCallback(raw []byte) (*StkCallback, bool) {
	var env CallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}
	if env.Body.StkCallback == nil || env.Body.StkCallback.CheckoutRequestID == "" {
		return nil, false
	}
	return env.Body.StkCallback, true
}

// FindMetadataValue looks up an item by name, tolerating reordering and
// omission. Returns nil when absent.
func FindMetadataValue(items []MetadataItem, name string) interface{} {
	for _, it := range items {
		if it.Name == name {
			return it.Value
		}
	}
	return nil
}

// MetadataString renders a metadata value as a string regardless of the JSON
// type the provider chose for it.
func MetadataString(items []MetadataItem, name string) string {
	v := FindMetadataValue(items, name)
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// MetadataAmount extracts a numeric amount, returning ok=false when missing or
// non-numeric.
func MetadataAmount(items []MetadataItem, name string) (int64, bool) {
	v := FindMetadataValue(items, name)
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
