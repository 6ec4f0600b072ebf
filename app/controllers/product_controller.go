package controllers

import (
	"io"
	"net/http"

	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/apperr"
	"github.com/adityaraj/bazario/pkg/bind"
	"github.com/adityaraj/bazario/pkg/response"
	"github.com/adityaraj/bazario/pkg/validate"
)

// maxImageBytes caps product image uploads.
const maxImageBytes = 5 << 20 // 5 MB

// ProductController exposes the catalogue: public reads, admin writes.
type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

func (c *ProductController) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	category := r.URL.Query().Get("category")

	products, p, err := c.catalog.ListProducts(r.Context(), category, page, limit)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Paginated(w, products, p)
}

func (c *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	product, err := c.catalog.GetProduct(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, product)
}

func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	var body services.ProductInput
	if errs, err := bind.JSON(r, &body); err != nil {
		response.FromError(w, r, err)
		return
	} else if validate.HasErrors(errs) {
		response.ValidationError(w, errs)
		return
	}

	product, err := c.catalog.CreateProduct(r.Context(), body)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, product)
}

func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var body services.ProductInput
	if errs, err := bind.JSON(r, &body); err != nil {
		response.FromError(w, r, err)
		return
	} else if validate.HasErrors(errs) {
		response.ValidationError(w, errs)
		return
	}

	product, err := c.catalog.UpdateProduct(r.Context(), id, body)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, product)
}

func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	if err := c.catalog.DeleteProduct(r.Context(), id); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, map[string]string{"message": "product deleted"})
}

// UploadImage accepts a multipart "image" file and attaches it to the
// product via the configured storage disk.
func (c *ProductController) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		response.FromError(w, r, apperr.Validationf("image upload too large or malformed"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.FromError(w, r, apperr.Validationf("an image file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.FromError(w, r, apperr.Wrap(apperr.Internal, "read upload", err))
		return
	}

	product, err := c.catalog.AttachImage(r.Context(), id, header.Filename, data)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, product)
}
