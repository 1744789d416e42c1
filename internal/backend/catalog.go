package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/ariefcatur/telava-pos/internal/catalog"
)

type listEnvelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var env listEnvelope
	if err := c.getJSON(ctx, "/api/product/items", &env); err != nil {
		return nil, err
	}
	var ps []catalog.Product
	if isArray(env.Data) {
		if err := json.Unmarshal(env.Data, &ps); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
	}
	return catalog.ResolveImages(c.baseURL, ps), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var env listEnvelope
	if err := c.getJSON(ctx, "/api/product/category", &env); err != nil {
		return nil, err
	}
	var cs []catalog.Category
	if isArray(env.Data) {
		var raw []json.RawMessage
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, fmt.Errorf("decode categories: %w", err)
		}
		for _, r := range raw {
			var o object
			if json.Unmarshal(r, &o) != nil {
				continue
			}
			cs = append(cs, catalog.Category{ID: catalog.Int(o["id"]), Name: str(o["name"])})
		}
	}
	return cs, nil
}

func (c *Client) CreateCategory(ctx context.Context, d catalog.CategoryDraft) (catalog.Category, error) {
	var env listEnvelope
	if err := c.postJSON(ctx, "/api/product/category/store", d, &env); err != nil {
		return catalog.Category{}, err
	}
	var o object
	_ = json.Unmarshal(env.Data, &o)
	return catalog.Category{ID: catalog.Int(o["id"]), Name: d.Name}, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int, d catalog.CategoryDraft) error {
	return c.doJSON(ctx, http.MethodPut, "/api/product/category/"+strconv.Itoa(id), d, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/product/category/"+strconv.Itoa(id), nil, nil)
}

// CreateProduct uploads the product form as multipart, photo included.
func (c *Client) CreateProduct(ctx context.Context, d catalog.ProductDraft) error {
	return c.sendProduct(ctx, "/api/product/items/store", d)
}

// UpdateProduct goes through POST with the _method=PUT override since
// multipart bodies are not parsed on PUT by the backend.
func (c *Client) UpdateProduct(ctx context.Context, id int, d catalog.ProductDraft) error {
	return c.sendProduct(ctx, "/api/product/product/"+strconv.Itoa(id)+"?_method=PUT", d)
}

func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/product/product/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) sendProduct(ctx context.Context, path string, d catalog.ProductDraft) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", d.Name},
		{"id_category", strconv.Itoa(d.CategoryID)},
		{"price", d.Price.String()},
		{"stock", strconv.Itoa(d.Stock)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	if len(d.Photo) > 0 {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="photo"; filename="photo.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(d.Photo); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	var res struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := c.send(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), &res); err != nil {
		return err
	}
	if res.Success != nil && !*res.Success {
		return fmt.Errorf("save product: %w: %s", ErrRejected, res.Message)
	}
	return nil
}
