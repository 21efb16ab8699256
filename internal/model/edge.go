package model

import "fmt"

// EdgeKind names an engagement relationship between an actor and a target.
type EdgeKind string

const (
	EdgeLike   EdgeKind = "like"
	EdgeSave   EdgeKind = "save"
	EdgeFollow EdgeKind = "follow"
)

func ParseEdgeKind(s string) (EdgeKind, error) {
	switch k := EdgeKind(s); k {
	case EdgeLike, EdgeSave, EdgeFollow:
		return k, nil
	}
	return "", fmt.Errorf("unknown engagement kind %q", s)
}

// Edge exists or it does not. Counters are derived by counting edges per target.
type Edge struct {
	Kind   EdgeKind `json:"kind"`
	Actor  UserID   `json:"actor"`
	Target string   `json:"target"`
}

// Bucket scopes uploaded media by content type.
type Bucket string

const (
	BucketAvatars Bucket = "avatars"
	BucketTips    Bucket = "tips"
	BucketGuides  Bucket = "guides"
)
