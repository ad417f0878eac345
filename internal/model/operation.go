package model

import "time"

// OperationStatus is the lifecycle state of a paid operation.
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
)

// IsFinal reports whether the status is terminal.
func (s OperationStatus) IsFinal() bool {
	return s == OperationCompleted || s == OperationFailed
}

// OperationKind identifies which generation variant produced an operation.
type OperationKind string

const (
	KindImage     OperationKind = "image"
	KindThumbnail OperationKind = "thumbnail"
	KindBanner    OperationKind = "banner"
	KindLogo      OperationKind = "logo"
	KindSocial    OperationKind = "social"
	KindShorts    OperationKind = "shorts"
	KindSEO       OperationKind = "seo"
)

// Operation is the persisted record of a single metered generation request.
type Operation struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Kind      OperationKind   `json:"kind"`
	Provider  string          `json:"provider"`
	Prompt    string          `json:"prompt"`
	Cost      int64           `json:"cost"`
	Status    OperationStatus `json:"status"`
	AssetURL  string          `json:"assetUrl"`
	Error     string          `json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
