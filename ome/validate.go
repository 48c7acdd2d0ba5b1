package ome

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/blang/semver"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// supportedVersions is the range of OME-Zarr versions this package reads
var supportedVersions = semver.MustParseRange(">=0.5.0 <0.6.0")

// CheckVersion reports whether v is a readable OME-Zarr version
func CheckVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: missing version", ErrMetadataFormat)
	}
	ver, err := semver.ParseTolerant(v)
	if err != nil {
		return fmt.Errorf("%w: version %q: %s", ErrMetadataFormat, v, err)
	}
	if !supportedVersions(ver) {
		return fmt.Errorf("%w: unsupported version %s", ErrMetadataFormat, v)
	}
	return nil
}

const imageSchema = `{
	"type": "object",
	"required": ["version", "multiscales"],
	"properties": {
		"version": {"type": "string"},
		"multiscales": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["axes", "datasets"],
				"properties": {
					"name": {"type": "string"},
					"axes": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["name"],
							"properties": {
								"name": {"type": "string", "minLength": 1},
								"type": {"type": "string"},
								"unit": {"type": "string"}
							}
						}
					},
					"datasets": {
						"type": "array",
						"minItems": 1,
						"items": {
							"type": "object",
							"required": ["path", "coordinateTransformations"],
							"properties": {
								"path": {"type": "string"},
								"coordinateTransformations": {
									"type": "array",
									"minItems": 1,
									"items": {
										"type": "object",
										"required": ["type"],
										"properties": {
											"type": {"enum": ["identity", "scale", "translation"]},
											"scale": {"type": "array", "items": {"type": "number"}},
											"translation": {"type": "array", "items": {"type": "number"}}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

var documentSchema = jsonschema.MustCompileString("ome-image.json", imageSchema)

// ValidateDocument checks the JSON value of an "ome" attribute against the
// image schema
func ValidateDocument(doc []byte) error {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %s", ErrMetadataFormat, err)
	}
	if err := documentSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", ErrMetadataFormat, err)
	}
	return nil
}
