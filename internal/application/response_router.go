package application

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bnema/fundcrawl/internal/domain"
)

// ResponseRoute maps captured responses whose URL contains Pattern to a slot.
type ResponseRoute struct {
	Pattern string
	Slot    domain.SlotName
	// Method restricts the route to one HTTP method when set.
	Method string
	// JSONPath, when set, must exist in the body; its raw value becomes the
	// slot data.
	JSONPath string
	// RequireJSON rejects bodies that are not valid JSON even without a path.
	RequireJSON bool
}

func (r ResponseRoute) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return domain.NewValidationError("routes.pattern", "is required")
	}
	if strings.TrimSpace(string(r.Slot)) == "" {
		return domain.NewValidationError("routes.slot", "is required")
	}
	return nil
}

func (r ResponseRoute) matches(resp domain.CapturedResponse) bool {
	if r.Method != "" && !strings.EqualFold(r.Method, resp.Method) {
		return false
	}
	return strings.Contains(resp.URL, r.Pattern)
}

// RoutedResponse is the slot write a captured response resolves to.
type RoutedResponse struct {
	Slot      domain.SlotName
	Succeeded bool
	Detail    string
}

// ResponseRouter owns the URL-fragment to slot table. The first matching
// route wins.
type ResponseRouter struct {
	routes []ResponseRoute
}

func NewResponseRouter(routes []ResponseRoute) (*ResponseRouter, error) {
	for i, route := range routes {
		if err := route.Validate(); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
	}
	return &ResponseRouter{routes: append([]ResponseRoute(nil), routes...)}, nil
}

// Slots returns the distinct slot names in route order.
func (r *ResponseRouter) Slots() []domain.SlotName {
	seen := map[domain.SlotName]bool{}
	slots := make([]domain.SlotName, 0, len(r.routes))
	for _, route := range r.routes {
		if seen[route.Slot] {
			continue
		}
		seen[route.Slot] = true
		slots = append(slots, route.Slot)
	}
	return slots
}

// Route returns false for responses no route cares about.
func (r *ResponseRouter) Route(resp domain.CapturedResponse) (RoutedResponse, bool) {
	for _, route := range r.routes {
		if !route.matches(resp) {
			continue
		}
		return route.evaluate(resp), true
	}
	return RoutedResponse{}, false
}

func (r ResponseRoute) evaluate(resp domain.CapturedResponse) RoutedResponse {
	failed := func(reason string) RoutedResponse {
		return RoutedResponse{Slot: r.Slot, Detail: reason}
	}

	if resp.Status < 200 || resp.Status > 299 {
		return failed(fmt.Sprintf("http status %d", resp.Status))
	}
	body := strings.TrimSpace(resp.Body)
	if body == "" {
		return failed("empty body")
	}
	if resp.Truncated && (r.RequireJSON || r.JSONPath != "") {
		return failed("body truncated")
	}
	if (r.RequireJSON || r.JSONPath != "") && !gjson.Valid(body) {
		return failed("invalid json body")
	}
	if r.JSONPath != "" {
		value := gjson.Get(body, r.JSONPath)
		if !value.Exists() {
			return failed(fmt.Sprintf("missing %s", r.JSONPath))
		}
		return RoutedResponse{Slot: r.Slot, Succeeded: true, Detail: value.Raw}
	}

	return RoutedResponse{Slot: r.Slot, Succeeded: true, Detail: body}
}
