package decompose

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"contex/contexts/context-routing/context-engine-service/domain/entities"
)

// MaxDepth bounds how deep an object/array payload gets decomposed into
// separate nodes. The top-level object or array is split into its
// children; a child at this depth is not split further and becomes one
// node whose payload is its whole subtree, keyed by its path — the same
// boundary node.py draws between "semantic unit" and "just data".
const MaxDepth = 1

// Nodes decomposes a publish request's raw payload into one or more
// NodeDrafts according to its declared format. A format that doesn't
// decompose (text, xml, a scalar JSON value) always yields exactly one
// draft keyed by DataKey alone.
func Nodes(req entities.PublishRequest) ([]entities.NodeDraft, error) {
	switch req.Format {
	case entities.FormatJSON:
		return decomposeJSON(req)
	case entities.FormatCSV:
		return decomposeCSV(req)
	case entities.FormatYAML, entities.FormatTOML:
		return decomposeKeyValue(req)
	case entities.FormatXML, entities.FormatText:
		return singleNode(req, string(req.Raw)), nil
	default:
		return nil, fmt.Errorf("unsupported data format %q", req.Format)
	}
}

func singleNode(req entities.PublishRequest, text string) []entities.NodeDraft {
	description := req.Description
	if description == "" {
		description = strings.TrimSpace(req.DataKey + " | " + truncate(text, 500))
	}
	return []entities.NodeDraft{{
		NodeKey:     req.DataKey,
		Path:        "",
		Description: description,
		Payload:     normalizePayload(req.Raw),
	}}
}

func decomposeJSON(req entities.PublishRequest) ([]entities.NodeDraft, error) {
	var value any
	if err := json.Unmarshal(req.Raw, &value); err != nil {
		return nil, fmt.Errorf("decode json payload: %w", err)
	}

	var drafts []entities.NodeDraft
	walk(req.DataKey, "", value, 0, req.Description, &drafts)
	if len(drafts) == 0 {
		return singleNode(req, string(req.Raw)), nil
	}
	return drafts, nil
}

// walk recurses into objects and arrays below MaxDepth; a scalar, an empty
// container, or any subtree reached at MaxDepth becomes one NodeDraft of
// its own, with the whole subtree serialized as its payload.
func walk(dataKey, path string, value any, depth int, explicitDescription string, out *[]entities.NodeDraft) {
	switch v := value.(type) {
	case map[string]any:
		if depth >= MaxDepth || len(v) == 0 {
			emitLeaf(dataKey, path, v, explicitDescription, out)
			return
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			childPath := joinPath(path, k)
			walk(dataKey, childPath, v[k], depth+1, "", out)
		}
	case []any:
		if depth >= MaxDepth || len(v) == 0 {
			emitLeaf(dataKey, path, v, explicitDescription, out)
			return
		}
		for i, item := range v {
			childPath := fmt.Sprintf("%s[%d]", path, i)
			walk(dataKey, childPath, item, depth+1, "", out)
		}
	default:
		emitLeaf(dataKey, path, v, explicitDescription, out)
	}
}

func emitLeaf(dataKey, path string, value any, explicitDescription string, out *[]entities.NodeDraft) {
	payload, err := json.Marshal(value)
	if err != nil {
		payload = []byte(`null`)
	}
	description := explicitDescription
	if description == "" {
		description = describe(path, value)
	}
	*out = append(*out, entities.NodeDraft{
		NodeKey:     nodeKey(dataKey, path),
		Path:        path,
		Description: description,
		Payload:     payload,
	})
}

func nodeKey(dataKey, path string) string {
	if path == "" {
		return dataKey
	}
	return dataKey + "#" + path
}

// describe builds a fallback embedding-text when a publisher didn't supply
// one: the path's property names followed by a flattened key:value
// rendering of the content, mirroring node.py's get_text_content.
func describe(path string, value any) string {
	var parts []string
	if path != "" {
		parts = append(parts, strings.Join(pathSegments(path), " "))
	}

	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, fmt.Sprintf("%s: %v", k, v[k]))
		}
		parts = append(parts, strings.Join(kv, " | "))
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprintf("%v", item))
		}
		parts = append(parts, strings.Join(items, ", "))
	default:
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return strings.Join(parts, " | ")
}

func pathSegments(path string) []string {
	cleaned := strings.NewReplacer("[", ".", "]", "").Replace(path)
	var out []string
	for _, p := range strings.Split(cleaned, ".") {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func decomposeCSV(req entities.PublishRequest) ([]entities.NodeDraft, error) {
	reader := csv.NewReader(strings.NewReader(string(req.Raw)))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv payload: %w", err)
	}
	if len(rows) < 2 {
		return singleNode(req, string(req.Raw)), nil
	}

	header := rows[0]
	var drafts []entities.NodeDraft
	for i, row := range rows[1:] {
		record := make(map[string]any, len(header))
		for j, col := range header {
			if j < len(row) {
				record[col] = row[j]
			}
		}
		payload, err := json.Marshal(record)
		if err != nil {
			continue
		}
		drafts = append(drafts, entities.NodeDraft{
			NodeKey:     fmt.Sprintf("%s#row[%d]", req.DataKey, i),
			Path:        fmt.Sprintf("row[%d]", i),
			Description: describe(fmt.Sprintf("row[%d]", i), record),
			Payload:     payload,
		})
	}
	return drafts, nil
}

// decomposeKeyValue does a minimal, indentation-naive "key: value" line
// scan for YAML/TOML payloads — good enough to make top-level scalar keys
// searchable without pulling in a full parser for a format the routing
// engine only needs to index, not validate or round-trip.
func decomposeKeyValue(req entities.PublishRequest) ([]entities.NodeDraft, error) {
	lines := strings.Split(string(req.Raw), "\n")
	record := make(map[string]string)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		sep := strings.IndexAny(trimmed, ":=")
		if sep <= 0 {
			continue
		}
		key := strings.TrimSpace(trimmed[:sep])
		value := strings.Trim(strings.TrimSpace(trimmed[sep+1:]), `"'`)
		if key != "" {
			record[key] = value
		}
	}
	if len(record) == 0 {
		return singleNode(req, string(req.Raw)), nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return []entities.NodeDraft{{
		NodeKey:     req.DataKey,
		Description: describe("", anyMap(record)),
		Payload:     payload,
	}}, nil
}

func anyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func normalizePayload(raw []byte) json.RawMessage {
	text, err := json.Marshal(string(raw))
	if err != nil {
		return json.RawMessage(`""`)
	}
	return text
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
