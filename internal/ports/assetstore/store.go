package assetstore

import "context"

// Upload is the stored asset reference.
type Upload struct {
	URL    string
	FileID string
	Size   int64
}

// Store relocates generated assets to durable public storage.
type Store interface {
	Upload(ctx context.Context, fileName string, data []byte) (Upload, error)
}
