package blockstore

// Height index key layout
const (
	PrefixHeight = "height:"

	PrefixIndexMeta    = "idx_meta:"
	IndexMetaKeyHead   = "head"
	IndexMetaKeyHeadID = "head_id"
)
