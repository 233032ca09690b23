package learning

import (
	"errors"
	"math"
	"slices"
	"sync"
)

// MaxLineQuantity caps the units of one course in a cart.
const MaxLineQuantity = 100

// ErrQuantityLimit is returned by Add when a line would exceed MaxLineQuantity.
var ErrQuantityLimit = errors.New("cart line quantity limit exceeded")

type CartItem struct {
	CourseID string  `json:"courseId"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

type Cart struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	ItemCount int        `json:"itemCount"`
	Total     float64    `json:"total"`
}

// CartStore keeps carts in memory. Carts are created on first use.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]*Cart)}
}

// Add puts quantity units of course into the cart, merging with an existing
// line for the same course, and returns a snapshot of the cart. The cart is
// left unchanged when the line would exceed MaxLineQuantity.
func (s *CartStore) Add(cartID string, course Course, quantity int) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 || quantity > MaxLineQuantity {
		return Cart{}, ErrQuantityLimit
	}
	if cart, ok := s.carts[cartID]; ok {
		for _, it := range cart.Items {
			if it.CourseID == course.ID && it.Quantity > MaxLineQuantity-quantity {
				return Cart{}, ErrQuantityLimit
			}
		}
	}

	cart, ok := s.carts[cartID]
	if !ok {
		cart = &Cart{ID: cartID}
		s.carts[cartID] = cart
	}

	i := slices.IndexFunc(cart.Items, func(it CartItem) bool { return it.CourseID == course.ID })
	if i < 0 {
		cart.Items = append(cart.Items, CartItem{CourseID: course.ID, Title: course.Title, Price: course.Price})
		i = len(cart.Items) - 1
	}
	cart.Items[i].Quantity += quantity
	cart.recalculate()

	return cart.snapshot(), nil
}

// Get returns a snapshot of the cart, empty when it does not exist yet.
func (s *CartStore) Get(cartID string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return Cart{ID: cartID, Items: []CartItem{}}
	}
	return cart.snapshot()
}

func (c *Cart) recalculate() {
	c.ItemCount, c.Total = 0, 0
	for i := range c.Items {
		it := &c.Items[i]
		it.Subtotal = roundCents(it.Price * float64(it.Quantity))
		c.ItemCount += it.Quantity
		c.Total += it.Subtotal
	}
	c.Total = roundCents(c.Total)
}

func (c *Cart) snapshot() Cart {
	out := *c
	out.Items = slices.Clone(c.Items)
	if out.Items == nil {
		out.Items = []CartItem{}
	}
	return out
}

func roundCents(f float64) float64 {
	return math.Round(f*100) / 100
}
