package domain

import (
	"fmt"
	"time"
)

// AssetKind identifies which slot of a movie an uploaded object fills.
type AssetKind string

const (
	AssetCover  AssetKind = "cover"
	AssetDetail AssetKind = "detail"
	AssetVideo  AssetKind = "video"
)

// ParseAssetKind validates a path or form supplied asset kind.
func ParseAssetKind(raw string) (AssetKind, error) {
	switch kind := AssetKind(raw); kind {
	case AssetCover, AssetDetail, AssetVideo:
		return kind, nil
	}
	return "", fmt.Errorf("unknown asset kind %q", raw)
}

// Movie is a catalog entry. Media fields hold object storage keys, not URLs.
type Movie struct {
	ID              string
	Title           string
	Description     string
	CoverImageKey   string
	DetailImageKeys []string
	VideoKey        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AssetKeys lists every stored object referenced by the movie.
func (m *Movie) AssetKeys() []string {
	keys := make([]string, 0, len(m.DetailImageKeys)+2)
	if m.CoverImageKey != "" {
		keys = append(keys, m.CoverImageKey)
	}
	keys = append(keys, m.DetailImageKeys...)
	if m.VideoKey != "" {
		keys = append(keys, m.VideoKey)
	}
	return keys
}
