// Package flowmeta provides key-path access into the opaque FlowMetaKV
// JSON values and reserved payload keys (spec.md sections 4.6 and 9),
// without ever fully unmarshaling the tree a caller only wants to touch
// one field of.
package flowmeta

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Reserved FlowMetaKV value keys.
const (
	KeyCurrentStep = "current_step"
	KeyStatus      = "status"
)

// Get reads keyPath out of a raw JSON blob (a FlowMetaKV value, or a step
// record's payload serialized to JSON). ok is false if the path is absent.
func Get(rawJSON, keyPath string) (value string, ok bool) {
	res := gjson.Get(rawJSON, keyPath)
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}

// GetResult returns the raw gjson.Result for callers that need the typed
// value (number, bool, array) rather than its string form.
func GetResult(rawJSON, keyPath string) gjson.Result {
	return gjson.Get(rawJSON, keyPath)
}

// Set writes value at keyPath inside rawJSON, returning the updated JSON
// string. An empty rawJSON is treated as "{}".
func Set(rawJSON, keyPath string, value any) (string, error) {
	if rawJSON == "" {
		rawJSON = "{}"
	}
	return sjson.Set(rawJSON, keyPath, value)
}

// Delete removes keyPath from rawJSON, returning the updated JSON string.
func Delete(rawJSON, keyPath string) (string, error) {
	if rawJSON == "" {
		return "{}", nil
	}
	return sjson.Delete(rawJSON, keyPath)
}

// CurrentStep reads the reserved "current_step" fact out of a flow's
// flow_metadata JSON blob.
func CurrentStep(flowMetadataJSON string) (string, bool) {
	return Get(flowMetadataJSON, KeyCurrentStep)
}

// WithCurrentStep sets the reserved "current_step" fact.
func WithCurrentStep(flowMetadataJSON, stepName string) (string, error) {
	return Set(flowMetadataJSON, KeyCurrentStep, stepName)
}

// Status reads the reserved "status" fact out of a flow's flow_metadata
// JSON blob.
func Status(flowMetadataJSON string) (string, bool) {
	return Get(flowMetadataJSON, KeyStatus)
}

// WithStatus sets the reserved "status" fact.
func WithStatus(flowMetadataJSON, status string) (string, error) {
	return Set(flowMetadataJSON, KeyStatus, status)
}
