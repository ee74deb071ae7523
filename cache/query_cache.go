package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Konsultn-Engineering/sqlcore/ast"
)

// TemplateCache keeps parsed ad hoc SQL templates, keyed by their text.
type TemplateCache struct {
	cache *lru.Cache[string, *ast.SqlTemplate]
}

func NewTemplateCache(size int) (*TemplateCache, error) {
	c, err := lru.New[string, *ast.SqlTemplate](size)
	if err != nil {
		return nil, err
	}
	return &TemplateCache{cache: c}, nil
}

// Parse returns the cached template for text, parsing it on a miss. Parse
// errors are not cached.
func (c *TemplateCache) Parse(text string) (*ast.SqlTemplate, error) {
	if t, ok := c.cache.Get(text); ok {
		return t, nil
	}
	t, err := ast.ParseTemplate(text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, t)
	return t, nil
}

func (c *TemplateCache) Len() int { return c.cache.Len() }

func (c *TemplateCache) Purge() { c.cache.Purge() }
