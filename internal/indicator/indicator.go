// Package indicator decodes SummaryCard payloads returned by the school
// dashboard API into a typed, defensively-parsed record model.
package indicator

import (
	"bytes"
	"encoding/json"
	"log"
)

// Category is the enumerated indicator category name. Unknown ids map to
// CategoryUnknown; the source id is not distinguished from a malformed one.
type Category string

const (
	CategoryChronicAbsenteeism     Category = "CHRONIC_ABSENTEEISM"
	CategorySuspensionRate         Category = "SUSPENSION_RATE"
	CategoryEnglishLearnerProgress Category = "ENGLISH_LEARNER_PROGRESS"
	CategoryGraduationRate         Category = "GRADUATION_RATE"
	CategoryCollegeCareer          Category = "COLLEGE_CAREER_INDICATOR"
	CategoryELAPoints              Category = "ELA_POINTS_ABOVE_BELOW"
	CategoryMathematics            Category = "MATHEMATICS"
	CategoryScience                Category = "SCIENCE"
	CategoryUnknown                Category = "UNKNOWN"
)

var idToCategory = map[uint64]Category{
	1: CategoryChronicAbsenteeism,
	2: CategorySuspensionRate,
	3: CategoryEnglishLearnerProgress,
	4: CategoryGraduationRate,
	5: CategoryCollegeCareer,
	6: CategoryELAPoints,
	7: CategoryMathematics,
	8: CategoryScience,
}

func categoryFor(id uint64) Category {
	if c, ok := idToCategory[id]; ok {
		return c
	}
	return CategoryUnknown
}

// Indicator is one metric for one cohort within a SummaryCard.
type Indicator struct {
	IndicatorID       uint64
	IndicatorCategory Category
	CDSCode           string
	Status            float64
	Change            float64
	ChangeID          int64
	StatusID          int64
	Performance       int64
	TotalGroups       uint64
	SchoolYearID      uint64
	Red               int64
	Orange            int64
	Yellow            int64
	Green             int64
	Blue              int64
	Count             int64
	StudentGroup      string
	IsPrivateData     bool
	PrimaryRaw        json.RawMessage
	SecondaryRaw      json.RawMessage
}

// SummaryCard is an ordered collection of Indicators for one (school, year)
// fetch, stamped with external metadata by the enrichment pass.
type SummaryCard struct {
	RawBody       []byte
	Indicators    []Indicator
	CategoryIndex map[Category]int // index into Indicators, last-writer-wins
	SchoolName    string
	Year          int
}

// NewCard returns an empty card ready for streaming append and decode. The
// worker creates one per fetched URL and reuses it across retries.
func NewCard() *SummaryCard {
	return &SummaryCard{CategoryIndex: make(map[Category]int)}
}

// AppendBody streams a chunk of the HTTP response body into the card. It is
// called repeatedly while the transport is still reading; RawBody is never
// mutated again once Decode has run successfully.
func (c *SummaryCard) AppendBody(chunk []byte) {
	c.RawBody = append(c.RawBody, chunk...)
}

// Reset clears a card's raw body ahead of a retry attempt, per spec.md
// §4.D step 2 ("if k > 0: clear card.rawBody"). Indicators are left alone;
// Decode only ever runs once, on the attempt that succeeds.
func (c *SummaryCard) Reset() {
	c.RawBody = nil
}

// Decode parses c.RawBody in place, populating Indicators and CategoryIndex.
// It is total: parse failures leave Indicators empty and log a diagnostic
// rather than propagating an error to the caller.
func (c *SummaryCard) Decode() {
	trimmed := bytes.TrimLeft(c.RawBody, " \t\r\n")
	if len(trimmed) == 0 {
		return
	}

	var entries []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			log.Printf("[indicator] decode: top-level array parse failed: %v", err)
			return
		}
	case '{':
		entries = []json.RawMessage{trimmed}
	default:
		// Not entered in normal operation: the worker rejects bodies that
		// don't start with { or [ before calling Decode.
		return
	}

	for i, raw := range entries {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			log.Printf("[indicator] decode: entry %d is not a JSON object, skipping: %v", i, err)
			continue
		}
		ind := decodeEntry(obj)
		c.Indicators = append(c.Indicators, ind)
		c.CategoryIndex[ind.IndicatorCategory] = len(c.Indicators) - 1
	}
}

// DecodeCard is a convenience constructor that builds a card from a raw
// body and decodes it in one step. It is total in the same sense as Decode.
func DecodeCard(rawBody []byte) *SummaryCard {
	card := NewCard()
	card.RawBody = rawBody
	card.Decode()
	return card
}

func decodeEntry(obj map[string]json.RawMessage) Indicator {
	id := readUint(obj, "indicatorId")
	ind := Indicator{
		IndicatorID:       id,
		IndicatorCategory: categoryFor(id),
	}
	if ind.IndicatorCategory == CategoryUnknown {
		log.Printf("[indicator] decode: indicator id %d is not in the category table, classified %s", id, CategoryUnknown)
	}

	primaryRaw, ok := obj["primary"]
	if !ok || isJSONNull(primaryRaw) {
		return ind
	}

	var primary map[string]json.RawMessage
	if err := json.Unmarshal(primaryRaw, &primary); err != nil {
		log.Printf("[indicator] decode: primary block for indicator %d is not an object: %v", id, err)
		return ind
	}
	ind.PrimaryRaw = primaryRaw
	ind.SecondaryRaw = obj["secondary"]

	ind.CDSCode = readString(primary, "cdsCode")
	ind.Status = readFloat(primary, "status")
	ind.Change = readFloat(primary, "change")
	ind.ChangeID = readInt(primary, "changeId")
	ind.StatusID = readInt(primary, "statusId")
	ind.Performance = readInt(primary, "performance")
	ind.TotalGroups = readUint(primary, "totalGroups")
	ind.SchoolYearID = readUint(primary, "schoolYearId")
	ind.Red = readInt(primary, "red")
	ind.Orange = readInt(primary, "orange")
	ind.Yellow = readInt(primary, "yellow")
	ind.Green = readInt(primary, "green")
	ind.Blue = readInt(primary, "blue")
	ind.Count = readInt(primary, "count")
	ind.StudentGroup = readString(primary, "studentGroup")
	ind.IsPrivateData = readBool(primary, "isPrivateData")

	return ind
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return string(trimmed) == "null"
}

// readString applies the safe-field-read rules for a string field: missing
// key or null -> "", a non-string scalar is stringified via its own JSON
// encoding rather than coerced.
func readString(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func readFloat(obj map[string]json.RawMessage, key string) float64 {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	return 0
}

func readInt(obj map[string]json.RawMessage, key string) int64 {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

func readUint(obj map[string]json.RawMessage, key string) uint64 {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		return 0
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

func readBool(obj map[string]json.RawMessage, key string) bool {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return false
}
