package database

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/cotuzatours/booking-backend/internal/models"
)

// TourCatalog serves the tour dataset from a JSON file.
// The file is read at startup and on Reload; readers never see a partial load.
type TourCatalog struct {
	path string

	mu    sync.RWMutex
	tours map[int]models.Tour
	order []int
}

// NewTourCatalog loads the catalog stored at path
func NewTourCatalog(path string) (*TourCatalog, error) {
	c := &TourCatalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file. On error the previous dataset is kept.
func (c *TourCatalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read tour catalog: %w", err)
	}

	tours, order, err := parseCatalog(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tours = tours
	c.order = order
	c.mu.Unlock()

	return nil
}

// GetTour returns the tour with the given id, or nil when it does not exist
func (c *TourCatalog) GetTour(id int) (*models.Tour, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tour, ok := c.tours[id]
	if !ok {
		return nil, nil
	}
	return &tour, nil
}

// ListTours returns every tour ordered by id
func (c *TourCatalog) ListTours() []models.Tour {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tours := make([]models.Tour, 0, len(c.order))
	for _, id := range c.order {
		tours = append(tours, c.tours[id])
	}
	return tours
}

// Len returns the number of tours loaded
func (c *TourCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

func parseCatalog(data []byte) (map[int]models.Tour, []int, error) {
	var list []models.Tour
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, nil, fmt.Errorf("invalid tour catalog: %w", err)
	}

	tours := make(map[int]models.Tour, len(list))
	order := make([]int, 0, len(list))
	for _, tour := range list {
		if tour.ID <= 0 {
			return nil, nil, fmt.Errorf("invalid tour catalog: tour %q has no positive id", tour.Name)
		}
		if _, dup := tours[tour.ID]; dup {
			return nil, nil, fmt.Errorf("invalid tour catalog: duplicate tour id %d", tour.ID)
		}
		if tour.Price.IsNegative() || (tour.GroupPrice != nil && tour.GroupPrice.IsNegative()) {
			return nil, nil, fmt.Errorf("invalid tour catalog: tour %d has a negative price", tour.ID)
		}
		tours[tour.ID] = tour
		order = append(order, tour.ID)
	}

	sort.Ints(order)

	return tours, order, nil
}
