package domain

type Language string

const (
	LangEnglish Language = "en"
	LangFrench  Language = "fr"
	LangGerman  Language = "de"
	LangChinese Language = "zh-Hant"
)

// DefaultLanguage is the fallback for empty, undetectable or unsupported input.
const DefaultLanguage = LangEnglish

func SupportedLanguages() []Language {
	return []Language{LangEnglish, LangFrench, LangGerman, LangChinese}
}

type PartitionID string

const (
	PartitionGeneral PartitionID = "general"
	PartitionSupport PartitionID = "support"
)

// Query is the caller input, immutable once accepted. Zero values mean
// "not supplied"; defaults are resolved by the usecase layer.
type Query struct {
	Text        string
	PartitionID PartitionID
	Language    string
	TopK        int
	ScoreFloor  *float64
	CallbackURL string
	JobID       string
}

// Passage is a single retrieved unit, read-only downstream of the gateway.
// Score is a pointer because the backend may omit it; an absent score is not
// the same thing as zero.
type Passage struct {
	Text      string            `json:"text"`
	Score     *float64          `json:"score,omitempty"`
	Title     string            `json:"title,omitempty"`
	URL       string            `json:"url,omitempty"`
	Source    string            `json:"source,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Partition PartitionID       `json:"partitionId,omitempty"`
}

type RetrievalMode string

const (
	// ModeRetrieval is the lean passage-only tier.
	ModeRetrieval RetrievalMode = "retrieval"
	// ModeRAG is the generative fallback tier, where the knowledge backend
	// produced the prebaked answer itself.
	ModeRAG RetrievalMode = "rag"
)

// RetrievalOutcome is the terminal state of the two-tier retrieval strategy.
// Exactly one mode is active per query; PrebakedAnswer is only set for ModeRAG.
type RetrievalOutcome struct {
	Mode           RetrievalMode
	Passages       []Passage
	PrebakedAnswer string
}

// Citation is derived from a passage; Ref is 1-based and matches the [n]
// markers the synthesized answer uses.
type Citation struct {
	Ref   int      `json:"ref"`
	Title string   `json:"title"`
	URL   string   `json:"url,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// Result is the final answer envelope. It is immutable once constructed and
// is either returned inline or transmitted once to a callback.
type Result struct {
	JobID         string        `json:"jobId"`
	Prompt        string        `json:"prompt"`
	Answer        string        `json:"answer"`
	Citations     []Citation    `json:"citations"`
	Mode          RetrievalMode `json:"mode"`
	TopK          int           `json:"topK"`
	ScoreFloor    float64       `json:"scoreFloor"`
	TS            int64         `json:"ts"`
	CallbackError string        `json:"callbackError,omitempty"`
}

// DispatchOutcome tells the transport layer what to return: either an
// acceptance receipt (the Result went out via the callback) or the Result
// itself. Result stays populated either way for observability.
type DispatchOutcome struct {
	Accepted bool
	JobID    string
	Result   *Result
	Routing  SearchRouting
}

// SearchRouting echoes the routing decision taken for a query.
type SearchRouting struct {
	PartitionID PartitionID `json:"partitionId"`
	Language    Language    `json:"language"`
	TopK        int         `json:"topK"`
	ScoreFloor  float64     `json:"scoreFloor"`
}

// SearchResult is the retrieval-only surface (kb.search).
type SearchResult struct {
	Content []Passage     `json:"content"`
	Routing SearchRouting `json:"routing"`
}
