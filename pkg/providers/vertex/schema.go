package vertex

// JSON-schema sanitizing for Gemini structured output. The generateContent
// API rejects several JSON-schema keywords that OpenAI clients routinely
// send: $ref/$defs indirection must be inlined, and additionalProperties /
// strict / $schema are not part of the accepted vocabulary.

// sanitizeSchema returns a copy of the schema with $ref references inlined
// and unsupported keywords removed. The input tree is never mutated.
func sanitizeSchema(schema map[string]any) map[string]any {
	defs := collectDefs(schema)
	out := inlineRefs(schema, defs, 0)
	m, ok := out.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// droppedKeywords are removed at every level of the tree.
var droppedKeywords = map[string]bool{
	"$defs":                true,
	"definitions":          true,
	"$schema":              true,
	"additionalProperties": true,
	"strict":               true,
}

// collectDefs gathers $defs/definitions entries from the schema root.
func collectDefs(schema map[string]any) map[string]any {
	defs := make(map[string]any)
	for _, key := range []string{"$defs", "definitions"} {
		if section, ok := schema[key].(map[string]any); ok {
			for name, def := range section {
				defs[name] = def
			}
		}
	}
	return defs
}

// maxRefDepth bounds $ref expansion so self-referential schemas cannot
// recurse forever; beyond it the branch degrades to an untyped object.
const maxRefDepth = 16

func inlineRefs(node any, defs map[string]any, depth int) any {
	if depth > maxRefDepth {
		return map[string]any{"type": "object"}
	}

	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			if target, ok := resolveRef(ref, defs); ok {
				return inlineRefs(target, defs, depth+1)
			}
			return map[string]any{"type": "object"}
		}

		out := make(map[string]any, len(v))
		for key, val := range v {
			if droppedKeywords[key] {
				continue
			}
			out[key] = inlineRefs(val, defs, depth)
		}
		return out

	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = inlineRefs(item, defs, depth)
		}
		return out

	default:
		return v
	}
}

// resolveRef resolves a local "#/$defs/Name" or "#/definitions/Name"
// reference against the collected definitions.
func resolveRef(ref string, defs map[string]any) (any, bool) {
	for _, prefix := range []string{"#/$defs/", "#/definitions/"} {
		if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
			def, ok := defs[ref[len(prefix):]]
			return def, ok
		}
	}
	return nil, false
}
