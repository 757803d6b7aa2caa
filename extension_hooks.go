package cloudops

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-cloudops/ops"
)

// TransportPack contributes one named operation transport plus the service
// recognizers that scope which operation services it can drive. Downstream
// modules register packs for the cloud surfaces they own.
type TransportPack struct {
	Name        string
	Transport   ops.Transport
	Recognizers []ops.ServiceRecognizer
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks is the composition seam for downstream modules: transport
// packs for new operation services and command/query bundles built over the
// shared service instance.
type ExtensionHooks struct {
	mu sync.RWMutex

	transportPacks map[string]TransportPack
	bundles        map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		transportPacks: map[string]TransportPack{},
		bundles:        map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterTransportPack(pack TransportPack) error {
	if h == nil {
		return fmt.Errorf("cloudops: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("cloudops: transport pack name is required")
	}
	if pack.Transport == nil {
		return fmt.Errorf("cloudops: transport pack %q has no transport", name)
	}

	normalized := TransportPack{
		Name:        name,
		Transport:   pack.Transport,
		Recognizers: append([]ops.ServiceRecognizer(nil), pack.Recognizers...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.transportPacks[name]; exists {
		return fmt.Errorf("cloudops: transport pack %q already registered", name)
	}
	h.transportPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("cloudops: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("cloudops: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("cloudops: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("cloudops: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// TransportPacks returns the registered packs in deterministic name order.
func (h *ExtensionHooks) TransportPacks() []TransportPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.transportPacks))
	for name := range h.transportPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TransportPack, 0, len(names))
	for _, name := range names {
		pack := h.transportPacks[name]
		out = append(out, TransportPack{
			Name:        pack.Name,
			Transport:   pack.Transport,
			Recognizers: append([]ops.ServiceRecognizer(nil), pack.Recognizers...),
		})
	}
	return out
}

func (h *ExtensionHooks) Transport(name string) (ops.Transport, bool) {
	if h == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	h.mu.RLock()
	defer h.mu.RUnlock()
	pack, ok := h.transportPacks[name]
	if !ok {
		return nil, false
	}
	return pack.Transport, true
}

// TransportForService resolves the first pack, in name order, whose
// recognizers accept the given operation service tag. Packs without
// recognizers accept every service.
func (h *ExtensionHooks) TransportForService(serviceTag string) (ops.Transport, bool) {
	for _, pack := range h.TransportPacks() {
		if len(pack.Recognizers) == 0 {
			return pack.Transport, true
		}
		for _, recognizer := range pack.Recognizers {
			if recognizer != nil && recognizer.RecognizesService(serviceTag) {
				return pack.Transport, true
			}
		}
	}
	return nil, false
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("cloudops: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
