package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	regexptokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/kensa/internal/models"
)

const batchSize = 500

// Path components are split on separators so "token" matches internal/auth/token.go.
const (
	pathTokenizer = "kensa_path_segments"
	pathAnalyzer  = "kensa_path"
	pathPattern   = `[^/\\._\-\s]+`
)

// chunkDoc is the document shape stored in Bleve.
type chunkDoc struct {
	File    string `json:"file"`
	Content string `json:"content"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	im, err := newMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to build Bleve mapping: %w", err)
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Rebuild discards any index at path and indexes chunks into a fresh one.
func Rebuild(ctx context.Context, path string, chunks []models.Chunk) (*BleveIndex, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to remove old Bleve index: %w", err)
	}
	idx, err := NewBleveIndex(path)
	if err != nil {
		return nil, err
	}
	if err := idx.IndexChunks(ctx, chunks); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

func newMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomTokenizer(pathTokenizer, map[string]interface{}{
		"type":   regexptokenizer.Name,
		"regexp": pathPattern,
	}); err != nil {
		return nil, err
	}
	if err := im.AddCustomAnalyzer(pathAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     pathTokenizer,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so identifiers match as written
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", contentField)
	fileField := bleve.NewTextFieldMapping()
	fileField.Analyzer = pathAnalyzer
	docMapping.AddFieldMappingsAt("file", fileField)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im, nil
}

// IndexChunks indexes chunks by id in batches.
func (b *BleveIndex) IndexChunks(ctx context.Context, chunks []models.Chunk) error {
	batch := b.index.NewBatch()
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		ch := &chunks[i]
		if err := batch.Index(ch.ID, chunkDoc{File: ch.File, Content: ch.Text}); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", ch.ID, err)
		}
		if batch.Size() >= batchSize {
			if err := b.index.Batch(batch); err != nil {
				return fmt.Errorf("Bleve batch failed: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve batch failed: %w", err)
		}
	}
	return nil
}

// Search runs a match query and returns up to limit results.
// With opts.FileBoost > 1, file and content are queried separately and scores are
// added, with the file score multiplied by the boost and a penalty for partial term coverage.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	fileBoost := 1.0
	fuzzy := false
	fuzziness := 2
	if opts != nil {
		if opts.FileBoost > 0 {
			fileBoost = opts.FileBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}
	if limit <= 0 {
		return nil, nil
	}
	if fileBoost <= 1.0 {
		hits, err := b.run(b.buildQuery(query, fuzzy, fuzziness, ""), limit)
		if err != nil {
			return nil, err
		}
		out := make([]*KeywordResult, 0, len(hits.order))
		for _, id := range hits.order {
			out = append(out, &KeywordResult{ID: id, Score: hits.scores[id]})
		}
		return out, nil
	}
	return b.searchWithBoost(query, limit, fileBoost, fuzzy, fuzziness)
}

type hitSet struct {
	order  []string
	scores map[string]float64
}

func (b *BleveIndex) run(q blevequery.Query, size int) (*hitSet, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	hs := &hitSet{scores: make(map[string]float64, len(results.Hits))}
	for _, hit := range results.Hits {
		hs.order = append(hs.order, hit.ID)
		hs.scores[hit.ID] = hit.Score
	}
	return hs, nil
}

func (b *BleveIndex) searchWithBoost(query string, limit int, fileBoost float64, fuzzy bool, fuzziness int) ([]*KeywordResult, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	fileHits, err := b.run(b.buildQuery(query, fuzzy, fuzziness, "file"), reqSize)
	if err != nil {
		return nil, err
	}
	contentHits, err := b.run(b.buildQuery(query, fuzzy, fuzziness, "content"), reqSize)
	if err != nil {
		return nil, err
	}

	terms := tokenizeQuery(query)
	coverage := make(map[string]int)
	if len(terms) > 1 {
		for _, term := range terms {
			hs, err := b.run(b.buildQuery(term, fuzzy, fuzziness, ""), reqSize)
			if err != nil {
				continue
			}
			for _, id := range hs.order {
				coverage[id]++
			}
		}
	}

	scores := make(map[string]float64)
	for id, s := range fileHits.scores {
		scores[id] += s * fileBoost
	}
	for id, s := range contentHits.scores {
		scores[id] += s
	}
	type scored struct {
		id    string
		score float64
	}
	merged := make([]scored, 0, len(scores))
	for id, s := range scores {
		// (matched/total)^2 so chunks matching every term outrank partial matches
		if len(terms) > 1 {
			matched := coverage[id]
			if matched == 0 {
				matched = 1
			}
			c := float64(matched) / float64(len(terms))
			s *= c * c
		}
		merged = append(merged, scored{id: id, score: s})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].id < merged[j].id
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	out := make([]*KeywordResult, len(merged))
	for i, s := range merged {
		out[i] = &KeywordResult{ID: s.id, Score: s.score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries when fuzzy is set.
// An empty field searches all fields.
func (b *BleveIndex) buildQuery(queryStr string, fuzzy bool, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the total number of chunks in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

var _ KeywordIndex = (*BleveIndex)(nil)
