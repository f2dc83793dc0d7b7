package valtoken_protocol

import "fmt"

const (
	DefaultUrisPerBatch = 10
	// DefaultBatchBytes bounds the encoded URI payload of one transaction.
	DefaultBatchBytes = 700
)

// BatchUris splits the URIs of one rarity into UploadUris batches. A batch is
// closed before it would hold more than maxPerBatch URIs or more than maxBytes
// of encoded URI data (4-byte length prefix plus the bytes of each URI).
func BatchUris(rarity Rarity, uris []string, maxPerBatch, maxBytes int) ([]*UploadUrisArgs, error) {
	if !rarity.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRarity, rarity)
	}
	if maxPerBatch <= 0 {
		maxPerBatch = DefaultUrisPerBatch
	}
	if maxBytes <= 0 {
		maxBytes = DefaultBatchBytes
	}

	var (
		batches []*UploadUrisArgs
		current *UploadUrisArgs
		size    int
	)
	for i, uri := range uris {
		encoded := 4 + len(uri)
		if encoded > maxBytes {
			return nil, fmt.Errorf("%w: %s uri #%d is %d bytes, budget %d", ErrUriTooLarge, rarity, i, encoded, maxBytes)
		}
		if current == nil || len(current.Uris) == maxPerBatch || size+encoded > maxBytes {
			current = &UploadUrisArgs{Rarity: rarity, Offset: uint32(i)}
			batches = append(batches, current)
			size = 0
		}
		current.Uris = append(current.Uris, uri)
		size += encoded
	}
	return batches, nil
}

// PlanUploads batches every rarity's URIs in rarity order.
func PlanUploads(uris map[Rarity][]string, maxPerBatch, maxBytes int) ([]*UploadUrisArgs, error) {
	var plan []*UploadUrisArgs
	for _, rarity := range Rarities() {
		batches, err := BatchUris(rarity, uris[rarity], maxPerBatch, maxBytes)
		if err != nil {
			return nil, err
		}
		plan = append(plan, batches...)
	}
	return plan, nil
}
