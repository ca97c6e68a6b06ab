package store

import (
	"encoding/json"
	"fmt"
)

// DigestField is the metadata key under which writers record the BLAKE3
// digest of the tensor data block, as lowercase hex.
const DigestField = "_safestruct_digest_"

// metadataKey is the reserved safetensors header entry for the string map.
const metadataKey = "__metadata__"

// TensorInfo describes one tensor in the safetensors header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end) into the data block
}

// header is the parsed safetensors JSON header: the free-form string
// metadata plus one TensorInfo per tensor key.
type header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

// UnmarshalJSON splits the flat safetensors header object into the
// __metadata__ map and the per-tensor entries.
func (h *header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap[metadataKey]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]TensorInfo)
	for key, value := range rawMap {
		if key == metadataKey {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}

	return nil
}
