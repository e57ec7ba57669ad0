package sync

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cartbridge/sync/internal/domain/catalog"
	"github.com/cartbridge/sync/internal/infrastructure/platform"
)

// maxCategoryHops bounds ancestor walks over the source tree; anything
// deeper indicates a corrupted parent chain.
const maxCategoryHops = 32

// TaxonomyAPI is the slice of the platform client the resolver consumes.
type TaxonomyAPI interface {
	FindCategoryByHandle(ctx context.Context, handle string) (*platform.ProductCategory, error)
	CreateCategory(ctx context.Context, in platform.CreateCategoryInput) (*platform.ProductCategory, error)
	FindCollectionByHandle(ctx context.Context, handle string) (*platform.Collection, error)
	CreateCollection(ctx context.Context, in platform.CreateCollectionInput) (*platform.Collection, error)
	FindTagByValue(ctx context.Context, value string) (*platform.Tag, error)
	CreateTag(ctx context.Context, value string) (*platform.Tag, error)
	FindTypeByValue(ctx context.Context, value string) (*platform.ProductType, error)
	CreateType(ctx context.Context, value string) (*platform.ProductType, error)
}

// Resolver finds-or-creates taxonomy entities on the target platform. Its
// caches live for one run and are written once per key: after a key resolves
// (by cache, remote lookup, or creation) no further network call is made for
// it. The resolver is the only cross-product state in a run and is used from
// a single sequential execution path, so the maps are unsynchronized.
//
// Every failure here degrades to "unresolved": the product proceeds without
// that taxonomy link and the cause is logged.
type Resolver struct {
	api  TaxonomyAPI
	tree map[int]catalog.SourceCategory
	log  *zap.Logger

	// Each entity kind is cached under two keys: the source id (or
	// normalized source value) and the generated handle. The handle cache
	// lets a lookup succeed when the id cache is cold but the entity
	// already exists remotely from a prior run.
	categoryByID     map[int]string
	categoryByHandle map[string]string

	collectionByRoot   map[int]string
	collectionByHandle map[string]string

	tagByValue  map[string]string
	typeByValue map[string]string
}

// NewResolver creates a Resolver over the pre-fetched source category tree.
func NewResolver(api TaxonomyAPI, tree map[int]catalog.SourceCategory, log *zap.Logger) *Resolver {
	return &Resolver{
		api:                api,
		tree:               tree,
		log:                log.Named("taxonomy"),
		categoryByID:       make(map[int]string),
		categoryByHandle:   make(map[string]string),
		collectionByRoot:   make(map[int]string),
		collectionByHandle: make(map[string]string),
		tagByValue:         make(map[string]string),
		typeByValue:        make(map[string]string),
	}
}

// ResolveCategories maps source category ids to target category ids,
// preserving order and dropping unresolved entries.
func (r *Resolver) ResolveCategories(ctx context.Context, sourceIDs []int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, id := range sourceIDs {
		tid := r.ResolveCategory(ctx, id)
		if tid == "" {
			continue
		}
		if _, dup := seen[tid]; dup {
			continue
		}
		seen[tid] = struct{}{}
		out = append(out, tid)
	}
	return out
}

// ResolveCategory resolves one source category id, creating the target
// category chain parent-before-child as needed. The platform requires an
// existing parent id to create a child, so the ancestor chain is resolved
// root-first. Returns "" when the category cannot be resolved.
func (r *Resolver) ResolveCategory(ctx context.Context, sourceID int) string {
	if tid, ok := r.categoryByID[sourceID]; ok {
		return tid
	}

	chain, ok := r.ancestorChain(sourceID)
	if !ok {
		// Orphaned join-table entry; the product proceeds without it.
		r.log.Warn("source category missing from tree", zap.Int("category_id", sourceID))
		return ""
	}

	parentID := ""
	resolved := ""
	for _, node := range chain {
		resolved = r.resolveCategoryNode(ctx, node, parentID)
		if resolved == "" {
			return ""
		}
		parentID = resolved
	}
	return resolved
}

// ancestorChain returns the path from the topmost ancestor down to sourceID.
// A broken parent link stops the ascent; a cycle is a logged anomaly, not a
// crash.
func (r *Resolver) ancestorChain(sourceID int) ([]catalog.SourceCategory, bool) {
	visited := make(map[int]struct{})
	var chain []catalog.SourceCategory

	cur := sourceID
	for hop := 0; hop < maxCategoryHops; hop++ {
		node, ok := r.tree[cur]
		if !ok {
			if cur == sourceID {
				return nil, false
			}
			r.log.Warn("category parent missing, stopping ascent",
				zap.Int("category_id", sourceID), zap.Int("missing_parent_id", cur))
			break
		}
		if _, seen := visited[cur]; seen {
			r.log.Warn("category parent cycle detected, stopping ascent",
				zap.Int("category_id", sourceID), zap.Int("cycle_at", cur))
			break
		}
		visited[cur] = struct{}{}
		chain = append([]catalog.SourceCategory{node}, chain...)
		if node.ParentID == 0 {
			break
		}
		cur = node.ParentID
	}
	return chain, len(chain) > 0
}

func (r *Resolver) resolveCategoryNode(ctx context.Context, node catalog.SourceCategory, parentID string) string {
	if tid, ok := r.categoryByID[node.ID]; ok {
		return tid
	}

	name := catalog.DecodeText(node.Name)
	handle := catalog.Slugify(name)
	if handle == "" {
		r.log.Warn("category name produces empty handle", zap.Int("category_id", node.ID))
		return ""
	}

	if tid, ok := r.categoryByHandle[handle]; ok {
		r.categoryByID[node.ID] = tid
		return tid
	}

	existing, err := r.api.FindCategoryByHandle(ctx, handle)
	if err != nil {
		r.log.Warn("category lookup failed",
			zap.Int("category_id", node.ID), zap.String("handle", handle), zap.Error(err))
		return ""
	}
	if existing != nil {
		r.cacheCategory(node.ID, handle, existing.ID)
		return existing.ID
	}

	created, err := r.api.CreateCategory(ctx, platform.CreateCategoryInput{
		Name:             name,
		Handle:           handle,
		Description:      catalog.CleanDescription(node.Description),
		IsActive:         true,
		ParentCategoryID: parentID,
		Metadata:         map[string]any{"legacy_category_id": node.ID},
	})
	if err != nil {
		r.log.Warn("category create failed",
			zap.Int("category_id", node.ID), zap.String("handle", handle), zap.Error(err))
		return ""
	}
	r.cacheCategory(node.ID, handle, created.ID)
	r.log.Info("category created",
		zap.Int("category_id", node.ID), zap.String("handle", handle), zap.String("target_id", created.ID))
	return created.ID
}

func (r *Resolver) cacheCategory(sourceID int, handle, targetID string) {
	r.categoryByID[sourceID] = targetID
	r.categoryByHandle[handle] = targetID
}

// ResolveCollection resolves the collection backing the product's top-level
// category ancestor: the first of the product's category ids that ascends to
// a root node decides the collection. Returns "" when none resolves.
func (r *Resolver) ResolveCollection(ctx context.Context, categoryIDs []int) string {
	for _, id := range categoryIDs {
		root, ok := r.topAncestor(id)
		if !ok {
			continue
		}
		return r.resolveCollectionRoot(ctx, root)
	}
	return ""
}

func (r *Resolver) topAncestor(sourceID int) (catalog.SourceCategory, bool) {
	chain, ok := r.ancestorChain(sourceID)
	if !ok {
		return catalog.SourceCategory{}, false
	}
	return chain[0], chain[0].ParentID == 0
}

func (r *Resolver) resolveCollectionRoot(ctx context.Context, root catalog.SourceCategory) string {
	if tid, ok := r.collectionByRoot[root.ID]; ok {
		return tid
	}

	title := catalog.DecodeText(root.Name)
	handle := catalog.Slugify(title)
	if handle == "" {
		return ""
	}

	if tid, ok := r.collectionByHandle[handle]; ok {
		r.collectionByRoot[root.ID] = tid
		return tid
	}

	existing, err := r.api.FindCollectionByHandle(ctx, handle)
	if err != nil {
		r.log.Warn("collection lookup failed", zap.String("handle", handle), zap.Error(err))
		return ""
	}
	if existing != nil {
		r.cacheCollection(root.ID, handle, existing.ID)
		return existing.ID
	}

	created, err := r.api.CreateCollection(ctx, platform.CreateCollectionInput{
		Title:    title,
		Handle:   handle,
		Metadata: map[string]any{"legacy_category_id": root.ID},
	})
	if err != nil {
		r.log.Warn("collection create failed", zap.String("handle", handle), zap.Error(err))
		return ""
	}
	r.cacheCollection(root.ID, handle, created.ID)
	r.log.Info("collection created", zap.String("handle", handle), zap.String("target_id", created.ID))
	return created.ID
}

func (r *Resolver) cacheCollection(rootID int, handle, targetID string) {
	r.collectionByRoot[rootID] = targetID
	r.collectionByHandle[handle] = targetID
}

// ResolveTags normalizes comma-separated tag text and resolves each tag.
// Tags that normalize to an empty string are silently dropped.
func (r *Resolver) ResolveTags(ctx context.Context, raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range catalog.SplitMultiValue(raw, ",") {
		value := catalog.NormalizeTag(part)
		if value == "" {
			continue
		}
		tid := r.resolveTag(ctx, value)
		if tid == "" {
			continue
		}
		if _, dup := seen[tid]; dup {
			continue
		}
		seen[tid] = struct{}{}
		out = append(out, tid)
	}
	return out
}

func (r *Resolver) resolveTag(ctx context.Context, value string) string {
	key := strings.ToLower(value)
	if tid, ok := r.tagByValue[key]; ok {
		return tid
	}

	existing, err := r.api.FindTagByValue(ctx, value)
	if err != nil {
		r.log.Warn("tag lookup failed", zap.String("value", value), zap.Error(err))
		return ""
	}
	if existing != nil {
		r.tagByValue[key] = existing.ID
		return existing.ID
	}

	created, err := r.api.CreateTag(ctx, value)
	if err != nil {
		r.log.Warn("tag create failed", zap.String("value", value), zap.Error(err))
		return ""
	}
	r.tagByValue[key] = created.ID
	return created.ID
}

// ResolveType resolves the product type for raw type text; "" when the text
// normalizes to nothing or resolution fails.
func (r *Resolver) ResolveType(ctx context.Context, raw string) string {
	value := catalog.NormalizeTag(raw)
	if value == "" {
		return ""
	}
	key := strings.ToLower(value)
	if tid, ok := r.typeByValue[key]; ok {
		return tid
	}

	existing, err := r.api.FindTypeByValue(ctx, value)
	if err != nil {
		r.log.Warn("type lookup failed", zap.String("value", value), zap.Error(err))
		return ""
	}
	if existing != nil {
		r.typeByValue[key] = existing.ID
		return existing.ID
	}

	created, err := r.api.CreateType(ctx, value)
	if err != nil {
		r.log.Warn("type create failed", zap.String("value", value), zap.Error(err))
		return ""
	}
	r.typeByValue[key] = created.ID
	return created.ID
}
