package db

import "time"

// SourceKind is how a Document entered the system.
type SourceKind string

const (
	SourceKindURL    SourceKind = "url"
	SourceKindUpload SourceKind = "upload"
	SourceKindCloud  SourceKind = "cloud"
)

// ChromeRemovalStats records the chrome-stripper's before/after accounting
// for a single document, mirroring internal/chrome.Stats.
type ChromeRemovalStats struct {
	OriginalChars    int      `json:"original_chars"`
	ChromeChars      int      `json:"chrome_chars"`
	GuidanceChars    int      `json:"guidance_chars"`
	ChromePercentage float64  `json:"chrome_percentage"`
	PatternsMatched  []string `json:"patterns_matched"`
}

// Document is a single ingested guidance page or upload.
type Document struct {
	ID                string
	CanonicalURL      string
	Title             string
	RawContent        string
	SourceKind        SourceKind
	ProcessingSuccess *bool
	ProcessingError   string
	ChromeRemoved     bool
	ChromeStats       ChromeRemovalStats
	ReprocessedAt     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IngestionStatus is the IngestionJob state machine's current state.
type IngestionStatus string

const (
	IngestionPending    IngestionStatus = "Pending"
	IngestionInProgress IngestionStatus = "InProgress"
	IngestionCompleted  IngestionStatus = "Completed"
	IngestionFailed     IngestionStatus = "Failed"
	IngestionPaused     IngestionStatus = "Paused"
	IngestionCancelled  IngestionStatus = "Cancelled"
)

// ingestionTransitions enumerates every legal state transition; anything
// absent from this map is rejected by CanTransitionIngestion.
var ingestionTransitions = map[IngestionStatus][]IngestionStatus{
	IngestionPending:    {IngestionInProgress, IngestionCancelled},
	IngestionInProgress: {IngestionCompleted, IngestionFailed, IngestionPaused, IngestionCancelled},
	IngestionPaused:     {IngestionInProgress, IngestionCancelled},
}

// CanTransitionIngestion reports whether moving from -> to is legal.
func CanTransitionIngestion(from, to IngestionStatus) bool {
	for _, allowed := range ingestionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IngestionJob tracks one ingestion run (a crawl, an upload batch, a
// cloud-storage sync).
type IngestionJob struct {
	ID             string
	UserID         string
	Method         SourceKind
	Status         IngestionStatus
	SourceDetails  string // JSON, shape varies by Method
	TotalCount     int
	ProcessedCount int
	FailedCount    int
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProcessingStatus is the ProcessingJob state machine's current state.
type ProcessingStatus string

const (
	ProcessingQueued     ProcessingStatus = "Queued"
	ProcessingInProgress ProcessingStatus = "Processing"
	ProcessingCompleted  ProcessingStatus = "Completed"
	ProcessingFailed     ProcessingStatus = "Failed"
)

var processingTransitions = map[ProcessingStatus][]ProcessingStatus{
	// ProcessingFailed is also reachable straight from Queued: cancel()
	// fails every still-Queued job "Cancelled by user" without ever
	// running it (spec §4.G).
	ProcessingQueued: {ProcessingInProgress, ProcessingFailed},
	// ProcessingQueued is also reachable from InProgress: a crashed
	// worker's in-flight jobs are reset to Queued with progress 0 by
	// handle_worker_failure (spec §4.G), not just advanced to a terminal
	// state.
	ProcessingInProgress: {ProcessingCompleted, ProcessingFailed, ProcessingQueued},
	ProcessingFailed:     {ProcessingQueued},
}

// CanTransitionProcessing reports whether moving from -> to is legal.
func CanTransitionProcessing(from, to ProcessingStatus) bool {
	for _, allowed := range processingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ProcessingJob is one document's unit of work within an IngestionJob.
type ProcessingJob struct {
	ID                    string
	IngestionJobID        string
	DocumentID            string
	WorkerID              string
	Status                ProcessingStatus
	Progress              int
	RetryCount            int
	ReprocessingBatchID   string
	ChromeStripperVersion string
	ErrorMessage          string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Priority orders ProcessingQueue entries.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ProcessingQueueEntry is a pending unit of crawl/upload work awaiting a
// worker.
type ProcessingQueueEntry struct {
	ID                 string
	IngestionJobID     string
	DocumentIdentifier string
	SourceType         SourceKind
	Priority           Priority
	WorkerID           string
	QueuedAt           time.Time
	AssignedAt         *time.Time
}

// TranslationCacheEntry is a cached reading-level translation of a
// document (or one chunk of it) for a given prompt and model.
type TranslationCacheEntry struct {
	ID             string
	DocumentID     string
	SourceHash     string
	ReadingLevel   string
	PromptHash     string
	ModelUsed      string
	TranslatedText string
	GeneratedAt    time.Time
	ExpiresAt      *time.Time
}

// SummaryCacheEntry is a cached plain-English summary of a document.
type SummaryCacheEntry struct {
	ID          string
	DocumentID  string
	SummaryText string
	WordCount   int
	ModelUsed   string
	GeneratedAt time.Time
	ExpiresAt   time.Time
	UserID      string
}

// PromptVersion is one saved draft of the production prompt text.
type PromptVersion struct {
	ID                    string
	Name                  string
	PromptText            string
	AuthorID              string
	Notes                 string
	CreatedAt             time.Time
	DeletedAt             *time.Time
	OptimisticLockCounter int
}

// ProductionPrompt is the singleton row (id=1) holding the live prompt.
type ProductionPrompt struct {
	PromptText            string
	PromotedAt            time.Time
	PromoterID            string
	PreviousBackupPath    string
	OptimisticLockCounter int
}

// AuditEntry is one persisted row in audit_log, mirroring logging.Event.
type AuditEntry struct {
	ID          string
	Event       string
	ActorID     string
	Subject     string
	Outcome     string
	ContextJSON string
	CreatedAt   time.Time
}
