package database

// Report status values. A report is created as generating, then moves to
// ready or failed exactly once; failed rows stay until a manual regeneration
// deletes them.
const (
	StatusGenerating = "generating"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Generation trigger types.
const (
	GenerationAuto   = "auto"
	GenerationManual = "manual"
)

// Episode is a processed podcast/video episode. The ingestion pipeline owns
// these rows; report code only reads them.
type Episode struct {
	ID           int64
	Title        string
	ChannelTitle *string
	PublishedAt  string
	IsPublished  bool
	Summary      *EpisodeSummary
	CreatedAt    *string
}

// EpisodeSummary is the structured summary attached to an episode.
type EpisodeSummary struct {
	Sections  []SummarySection `json:"sections"`
	KeyQuotes []KeyQuote       `json:"keyQuotes,omitempty"`
}

// SummarySection is one named section of bulleted claims.
type SummarySection struct {
	Name    string          `json:"name"`
	Bullets []SummaryBullet `json:"bullets"`
}

// SummaryBullet is a single claim with a confidence score.
type SummaryBullet struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// KeyQuote is a notable quote pulled from an episode.
type KeyQuote struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

// Report is a synthesized rollup for one (report_type, date_key) period.
type Report struct {
	ID               int64
	ReportType       string
	DateKey          string
	PeriodStart      string
	PeriodEnd        string
	Status           string
	GenerationType   string
	ContentJSON      *string
	Summary          *string
	EpisodesIncluded int
	GeneratedBy      *string
	GeneratedAt      *string
	CreatedAt        *string
}

// ReportTheme is a recurring topic extracted for a report.
type ReportTheme struct {
	ID         int64
	ReportID   int64
	Name       string
	Prominence float64
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalEpisodes      int
	PublishedEpisodes  int
	SummarizedEpisodes int
	TotalReports       int
	ReadyReports       int
	FailedReports      int
	ReportsByType      map[string]int
}
