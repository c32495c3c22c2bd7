package config_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/stillframe/config"
)

func TestSchemaCoversConfig(t *testing.T) {
	t.Parallel()

	schema := config.Schema()

	typ := reflect.TypeFor[config.Config]()
	for i := range typ.NumField() {
		tag, _, _ := strings.Cut(typ.Field(i).Tag.Get("yaml"), ",")
		if tag == "" || tag == "-" {
			continue
		}

		assert.Contains(t, schema.Properties, tag)
		assert.Contains(t, schema.PropertyOrder, tag)
	}

	assert.Len(t, schema.Properties, len(schema.PropertyOrder))
}

func TestSchemaJSON(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(config.Schema())
	require.NoError(t, err)

	var doc map[string]any

	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, config.SchemaID, doc["$schema"])
	assert.Equal(t, "object", doc["type"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)

	datasetType, ok := props["dataset_type"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]any{"max_constriction", "max-constriction", "all_frames", "all-frames"},
		datasetType["enum"],
	)
}
