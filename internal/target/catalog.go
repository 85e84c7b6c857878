package target

import (
	"fmt"
	"strings"
	"sync"
)

// Product is one catalog entry.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Catalog is the in-memory product store behind the storefront.
type Catalog struct {
	mu       sync.RWMutex
	products []Product
	pageSize int
}

// NewCatalog seeds a catalog with n generated products.
func NewCatalog(n int) *Catalog {
	categories := []string{"lamps", "chairs", "tables", "widgets", "gadgets", "gizmos"}
	products := make([]Product, 0, n)
	for i := 1; i <= n; i++ {
		cat := categories[i%len(categories)]
		products = append(products, Product{
			ID:          i,
			Name:        fmt.Sprintf("%s-%04d", strings.TrimSuffix(cat, "s"), i),
			Category:    cat,
			Description: fmt.Sprintf("A fine %s from the botarena catalog, item %d.", strings.TrimSuffix(cat, "s"), i),
			Price:       9.99 + float64(i%90),
		})
	}
	return &Catalog{products: products, pageSize: 20}
}

// Search returns one page of products matching the query, along with
// the total match count. Page numbers start at 1.
func (c *Catalog) Search(query string, page int) ([]Product, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	var matched []Product
	for _, p := range c.products {
		if query == "" || strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Category), query) ||
			strings.Contains(strings.ToLower(p.Description), query) {
			matched = append(matched, p)
		}
	}

	if page < 1 {
		page = 1
	}
	start := (page - 1) * c.pageSize
	if start >= len(matched) {
		return []Product{}, len(matched)
	}
	end := start + c.pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched)
}

// Get returns a product by id.
func (c *Catalog) Get(id int) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Add appends a product, assigning the next id.
func (c *Catalog) Add(p Product) Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.ID = len(c.products) + 1
	c.products = append(c.products, p)
	return p
}

// Size returns the product count.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}
