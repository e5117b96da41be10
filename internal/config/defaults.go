package config

// Default configuration values.
const (
	DefaultChunkSize       = 100
	DefaultStoreType       = "duckdb"
	DefaultWeightReference = WeightReferenceAbsolute
)

// ApplyDefaults fills unset fields of s.
func ApplyDefaults(s *Settings) {
	if s == nil {
		return
	}
	if s.Store.Type == "" {
		s.Store.Type = DefaultStoreType
	}
	if s.ChunkSize == 0 {
		s.ChunkSize = DefaultChunkSize
	}
	if s.WeightReference == "" {
		s.WeightReference = DefaultWeightReference
	}
}
