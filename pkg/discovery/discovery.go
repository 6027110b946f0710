package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/example/obelisco/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Registry registers the service in etcd so peers can find the cart
// gateway.
type Registry struct {
	client *clientv3.Client
	config *config.EtcdConfig
}

type Instance struct {
	Name string
	Host string
	Port int
}

func NewRegistry(cfg *config.EtcdConfig) (*Registry, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &Registry{
		client: cli,
		config: cfg,
	}, nil
}

// Register announces the instance under a 30 second lease kept alive for
// the lifetime of the process.
func (r *Registry) Register(ctx context.Context, instance *Instance) error {
	key := r.instanceKey(instance)
	value := fmt.Sprintf("%s:%d", instance.Host, instance.Port)

	lease, err := r.client.Grant(ctx, 30)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	if _, err := r.client.Put(ctx, key, value, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, kaerr := r.client.KeepAlive(ctx, lease.ID)
	if kaerr != nil {
		return fmt.Errorf("failed to keep alive: %w", kaerr)
	}

	go func() {
		for range ch {
		}
	}()

	return nil
}

// Lookup lists the registered instances of a service.
func (r *Registry) Lookup(ctx context.Context, serviceName string) ([]*Instance, error) {
	key := fmt.Sprintf("%s%s/", r.config.Prefix, serviceName)

	resp, err := r.client.Get(ctx, key, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to look up service: %w", err)
	}

	var instances []*Instance
	for _, kv := range resp.Kvs {
		instances = append(instances, parseInstance(serviceName, string(kv.Value)))
	}

	return instances, nil
}

// parseInstance splits a registered "host:port" value. A value without a
// port is kept whole as the host.
func parseInstance(name, addr string) *Instance {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return &Instance{Name: name, Host: addr}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return &Instance{Name: name, Host: addr}
	}
	return &Instance{Name: name, Host: host, Port: port}
}

func (r *Registry) Deregister(ctx context.Context, instance *Instance) error {
	if _, err := r.client.Delete(ctx, r.instanceKey(instance)); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

func (r *Registry) Close() error {
	return r.client.Close()
}

func (r *Registry) instanceKey(instance *Instance) string {
	return fmt.Sprintf("%s%s/%s:%d", r.config.Prefix, instance.Name, instance.Host, instance.Port)
}
