package upstream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/voltgrid/merchant-gateway/internal/config"
	"golang.org/x/sync/errgroup"
)

// Registry holds one forwarder per configured backend. All clients share a
// single pooled http.Client.
type Registry struct {
	User     *Client
	Merchant *Client
	Device   *Client
	Product  *Client
	Voucher  *Client
	Customer *Client
	Order    *Client
	Payment  *Client
	Billing  *Client
	Events   *Client
	Passes   *Client
	OCPP     *Client
	Ledgers  *Client
}

// NewRegistry builds forwarders for every backend in the configuration.
func NewRegistry(services config.ServicesConfig) *Registry {
	httpClient := &http.Client{
		Timeout: 15 * time.Second,
	}
	return &Registry{
		User:     NewClient("user-service", services.User, httpClient),
		Merchant: NewClient("merchant-service", services.Merchant, httpClient),
		Device:   NewClient("device-service", services.Device, httpClient),
		Product:  NewClient("product-service", services.Product, httpClient),
		Voucher:  NewClient("voucher-service", services.Voucher, httpClient),
		Customer: NewClient("customer-service", services.Customer, httpClient),
		Order:    NewClient("order-service", services.Order, httpClient),
		Payment:  NewClient("payment-service", services.Payment, httpClient),
		Billing:  NewClient("billing-service", services.Billing, httpClient),
		Events:   NewClient("events-processor", services.Events, httpClient),
		Passes:   NewClient("passes-service", services.Passes, httpClient),
		OCPP:     NewClient("ocpp16-service", services.OCPP, httpClient),
		Ledgers:  NewClient("ledgers-service", services.Ledgers, httpClient),
	}
}

// All returns every registered forwarder.
func (r *Registry) All() []*Client {
	return []*Client{
		r.User, r.Merchant, r.Device, r.Product, r.Voucher, r.Customer,
		r.Order, r.Payment, r.Billing, r.Events, r.Passes, r.OCPP, r.Ledgers,
	}
}

// Probe health-checks every backend concurrently and reports per-service
// status. A nil map value means the backend answered.
func (r *Registry) Probe(ctx context.Context) map[string]error {
	var (
		mu      sync.Mutex
		results = make(map[string]error)
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, client := range r.All() {
		g.Go(func() error {
			err := client.Health(ctx)
			mu.Lock()
			results[client.Name()] = err
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; Wait is just the join point.
	_ = g.Wait()

	return results
}
