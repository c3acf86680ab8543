package database

// NewsItem is a persisted, classified news record.
type NewsItem struct {
	ID                int64
	Title             string
	Link              string
	PublishedAt       *string
	Source            *string
	Description       *string
	ContentHash       string
	AIProbability     *int // nil = not analyzed, 0 = confirmed non-rumor, 1-100 = rumor confidence
	AIAnalysis        *string
	IsRelevant        bool
	IrrelevanceReason *string
	IsHidden          bool
	NeedsReassessment bool
	AdminContext      *string
	ReassessedAt      *string
	CreatedAt         *string
}

// Player is a canonical, deduplicated player record.
type Player struct {
	ID             int64
	Name           string
	NormalizedName string
	Aliases        []string
	RumorCount     int
	IsCurrentSquad bool
	LastSeenAt     *string
	CreatedAt      *string
}

// NewsPlayerLink ties a news record to a mentioned player.
type NewsPlayerLink struct {
	NewsID   int64
	PlayerID int64
	Role     string
}

// RunReport holds the aggregate counters of one sync run.
type RunReport struct {
	ID               int64
	StartedAt        string
	FinishedAt       *string
	Fetched          int
	Duplicates       int
	TransferRumors   int
	RegularNews      int
	NotAnalyzed      int
	AutoHidden       int
	Analyzed         int
	Inserted         int
	PlayersProcessed int
	Reassessed       int
	Errors           int
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalNews       int
	TransferRumors  int
	RegularNews     int
	NotAnalyzed     int
	Hidden          int
	PendingReassess int
	TotalPlayers    int
	CurrentSquad    int
}
