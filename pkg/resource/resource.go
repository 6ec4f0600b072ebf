// Package resource shapes what each endpoint exposes of a model. A
// transformer picks fields off the raw record, so internal columns never
// leak into a response by accident.
//
//	type ProductResource struct{ resource.Base }
//	func (ProductResource) ToArray(v interface{}) resource.Map {
//	    p := v.(map[string]interface{})
//	    return resource.Map{"id": p["ID"], "name": p["name"], "price": p["price"]}
//	}
//
//	resource.New(ProductResource{}, product).Respond(w)
//	resource.CollectionOf(ProductResource{}, products).WithPagination(p).Respond(w)
package resource

import (
	"encoding/json"
	"net/http"
)

// Map is the shape a transformer produces for one record.
type Map = map[string]interface{}

// Transformer converts one model instance into its public Map form.
type Transformer interface {
	ToArray(v interface{}) Map
}

// Base is embedded by concrete resources; it reserves room for shared
// behavior without forcing every resource to define it.
type Base struct{}

// Resource pairs a single record with its transformer.
type Resource struct {
	via  Transformer
	item interface{}
	meta Map
}

// New wraps one record for transformation.
func New(t Transformer, item interface{}) *Resource {
	return &Resource{via: t, item: item}
}

// WithMeta adds a meta block to the envelope.
func (r *Resource) WithMeta(meta Map) *Resource {
	r.meta = meta
	return r
}

// MarshalJSON lets a Resource nest inside another JSON value.
func (r *Resource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.via.ToArray(r.item))
}

// Respond writes {"data": ...} with status 200.
func (r *Resource) Respond(w http.ResponseWriter) {
	body := Map{"data": r.via.ToArray(r.item)}
	if r.meta != nil {
		body["meta"] = r.meta
	}
	send(w, http.StatusOK, body)
}

// Collection pairs a slice of records with a transformer.
type Collection struct {
	via   Transformer
	items interface{}
	page  interface{}
	meta  Map
}

// CollectionOf wraps a slice (any []Model) for transformation.
func CollectionOf(t Transformer, items interface{}) *Collection {
	return &Collection{via: t, items: items}
}

// WithPagination adds a pagination block to the envelope.
func (c *Collection) WithPagination(p interface{}) *Collection {
	c.page = p
	return c
}

// WithMeta adds a meta block to the envelope.
func (c *Collection) WithMeta(meta Map) *Collection {
	c.meta = meta
	return c
}

// Respond writes {"data": [...]} with status 200. Each element reaches the
// transformer as a map[string]interface{}; a JSON round-trip does the
// conversion so no reflection is needed here.
func (c *Collection) Respond(w http.ResponseWriter) {
	raw, _ := json.Marshal(c.items)
	var elems []json.RawMessage
	_ = json.Unmarshal(raw, &elems)

	data := make([]interface{}, 0, len(elems))
	for _, e := range elems {
		var v interface{}
		_ = json.Unmarshal(e, &v)
		data = append(data, c.via.ToArray(v))
	}

	body := Map{"data": data}
	if c.page != nil {
		body["pagination"] = c.page
	}
	if c.meta != nil {
		body["meta"] = c.meta
	}
	send(w, http.StatusOK, body)
}

func send(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
