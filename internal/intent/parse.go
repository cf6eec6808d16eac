package intent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyellow/school-records-go/internal/constancia"
)

// Reply keys. Go's decoder matches struct fields case-insensitively, so
// objects are read through raw maps to keep field names strict.
const (
	keyIntentionType  = "intention_type"
	keySubIntention   = "sub_intention"
	keyConfidence     = "confidence"
	keyReasoning      = "reasoning"
	keyEntities       = "detected_entities"
	keyCategorization = "student_categorization"
	keyClarification  = "clarification_question"
)

var (
	// ErrNoJSON is returned when the reply holds no {...} object.
	ErrNoJSON = errors.New("no JSON object in reply")
	// ErrUnknownKind is returned for an intention_type outside the closed set.
	ErrUnknownKind = errors.New("unknown intention type")
)

// ParseReply decodes the LLM reply into an Intent.
// Text before the first '{' and after the last '}' is discarded.
// Unknown sub_intention values are replaced by the kind's default.
func ParseReply(reply string) (*Intent, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(reply[start:end+1]), &root); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	for _, key := range []string{keyIntentionType, keySubIntention, keyConfidence, keyEntities} {
		if _, ok := root[key]; !ok {
			return nil, fmt.Errorf("missing field %q", key)
		}
	}

	var (
		kind    string
		subKind string
		in      Intent
	)
	if err := decodeString(root, keyIntentionType, &kind); err != nil {
		return nil, err
	}
	in.Kind = Kind(strings.TrimSpace(kind))
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := decodeString(root, keySubIntention, &subKind); err != nil {
		return nil, err
	}
	in.SubKind = normalizeSubKind(in.Kind, SubKind(strings.TrimSpace(subKind)))

	if err := json.Unmarshal(root[keyConfidence], &in.Confidence); err != nil {
		return nil, fmt.Errorf("field %q: %w", keyConfidence, err)
	}
	in.Confidence = min(max(in.Confidence, 0), 1)

	if err := decodeString(root, keyReasoning, &in.Reasoning); err != nil {
		return nil, err
	}

	entities, err := parseEntities(root[keyEntities])
	if err != nil {
		return nil, err
	}
	in.Entities = entities

	if raw, ok := root[keyCategorization]; ok && !isNull(raw) {
		cat, err := parseCategorization(raw)
		if err != nil {
			return nil, err
		}
		in.Categorization = cat
	}

	if in.Kind == KindAclaracion {
		if err := decodeString(root, keyClarification, &in.ClarificationQuestion); err != nil {
			return nil, err
		}
		if in.ClarificationQuestion == "" {
			in.ClarificationQuestion = DefaultClarification
		}
	}

	return &in, nil
}

func parseEntities(raw json.RawMessage) (Entities, error) {
	var e Entities
	if isNull(raw) {
		return e, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return e, fmt.Errorf("field %q: %w", keyEntities, err)
	}

	var names []string
	if err := decodeOptional(m, "nombres", &names); err != nil {
		return e, err
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			e.Names = append(e.Names, n)
		}
	}

	var typ string
	if err := decodeString(m, "tipo_constancia", &typ); err != nil {
		return e, err
	}
	if t, ok := constancia.ParseType(typ); ok {
		e.ConstanciaType = t
	}

	if err := decodeOptional(m, "incluir_foto", &e.IncludePhoto); err != nil {
		return e, err
	}

	var action, source, field string
	if err := decodeString(m, "accion_principal", &action); err != nil {
		return e, err
	}
	if err := decodeString(m, "fuente_datos", &source); err != nil {
		return e, err
	}
	if err := decodeString(m, "campo_solicitado", &field); err != nil {
		return e, err
	}
	e.Action = Action(strings.ToLower(strings.TrimSpace(action)))
	e.DataSource = DataSource(strings.ToLower(strings.TrimSpace(source)))
	e.RequestedField = strings.ToLower(strings.TrimSpace(field))

	var filters []string
	if err := decodeOptional(m, "filtros", &filters); err != nil {
		return e, err
	}
	for _, f := range filters {
		if parsed, ok := ParseFilter(f); ok {
			e.Filters = append(e.Filters, parsed)
		}
	}

	if raw, ok := m["alumno_resuelto"]; ok && !isNull(raw) {
		rs, err := parseResolved(raw)
		if err != nil {
			return e, err
		}
		e.ResolvedStudent = rs
	}
	return e, nil
}

// ParseFilter splits "campo: valor". The field is lowercased.
func ParseFilter(s string) (Filter, bool) {
	field, value, ok := strings.Cut(s, ":")
	field = strings.ToLower(strings.TrimSpace(field))
	value = strings.TrimSpace(value)
	if !ok || field == "" || value == "" {
		return Filter{}, false
	}
	return Filter{Field: field, Value: value}, true
}

func parseResolved(raw json.RawMessage) (*ResolvedStudent, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("field %q: %w", "alumno_resuelto", err)
	}
	id, ok := decodeNumber(m["id"])
	if !ok || id <= 0 {
		return nil, nil //nolint:nilnil // unusable reference is treated as absent
	}
	rs := &ResolvedStudent{ID: id}
	if err := decodeString(m, "nombre", &rs.Name); err != nil {
		return nil, err
	}
	if pos, ok := decodeNumber(m["posicion"]); ok {
		rs.Position = int(pos)
	}
	return rs, nil
}

func parseCategorization(raw json.RawMessage) (*Categorization, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("field %q: %w", keyCategorization, err)
	}
	c := &Categorization{}
	for key, dst := range map[string]*string{
		"category":     &c.Category,
		"sub_type":     &c.SubType,
		"complexity":   &c.Complexity,
		"optimal_flow": &c.OptimalFlow,
	} {
		if err := decodeString(m, key, dst); err != nil {
			return nil, err
		}
	}
	if err := decodeOptional(m, "requires_context", &c.RequiresContext); err != nil {
		return nil, err
	}
	return c, nil
}

// decodeString reads an optional string field; null and absent leave dst empty.
func decodeString(m map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := m[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	*dst = strings.TrimSpace(*dst)
	return nil
}

func decodeOptional(m map[string]json.RawMessage, key string, dst any) error {
	raw, ok := m[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

// decodeNumber accepts 3, 3.0 and "3".
func decodeNumber(raw json.RawMessage) (int64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int64(f), f == float64(int64(f))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
