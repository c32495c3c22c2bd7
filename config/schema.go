package config

import (
	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/stillframe/dataset"
	"go.jacobcolvin.com/stillframe/rundir"
)

// SchemaID is the $schema URI of the schema returned by [Schema].
const SchemaID = "http://json-schema.org/draft-07/schema#"

// Schema returns a JSON Schema for the YAML config file read by
// [Config.Load]. Editors use it to complete and check config files.
func Schema() *jsonschema.Schema {
	str := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Description: desc}
	}

	types := make([]any, 0, 4)
	for _, t := range dataset.GetAllTypeStrings() {
		types = append(types, t, rundir.Tag(t))
	}

	props := map[string]*jsonschema.Schema{
		"video_dir":  str("Directory containing the .avi videos."),
		"labels":     str("Label spreadsheet (.xlsx or .csv). Required for max_constriction."),
		"output_dir": str("Root directory for run directories."),
		"frame_size": {
			Type:        "string",
			Description: `Target frame size as "WIDTHxHEIGHT" or a single number for square frames.`,
			Pattern:     `^[0-9]+(x[0-9]+)?$`,
		},
		"dataset_type": {
			Type:        "string",
			Description: "Extraction mode.",
			Enum:        types,
		},
		"max_workers": {
			Type:        "integer",
			Description: "Videos processed concurrently by all_frames.",
			Minimum:     jsonschema.Ptr(1.0),
		},
		"dry_run": {
			Type:        "boolean",
			Description: "Create the run directory without extracting.",
		},
		"ffmpeg":  str("ffmpeg executable."),
		"ffprobe": str("ffprobe executable."),
	}

	return &jsonschema.Schema{
		Schema:               SchemaID,
		Title:                "stillframe config",
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
		PropertyOrder: []string{
			"video_dir", "labels", "output_dir", "frame_size",
			"dataset_type", "max_workers", "dry_run", "ffmpeg", "ffprobe",
		},
	}
}
