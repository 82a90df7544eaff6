package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/datatypes"

	"sellpage/page"
	"sellpage/pricing"
	"sellpage/web/db"
)

// PublishPage stores the builder's finished configuration document under a
// slug, wholesale-overwriting any previous version. Sale counters survive
// republishing.
func PublishPage(c *gin.Context) {
	merchant := c.MustGet("merchant").(db.Merchant)
	slug := c.Param("slug")

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	cfg, err := page.Parse(slug, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing db.Page
	result := db.DB.First(&existing, "slug = ?", slug)
	if result.Error == nil {
		if existing.MerchantID != merchant.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Slug belongs to another merchant"})
			return
		}
		existing.Title = cfg.Title
		existing.Price = cfg.BasePrice.String()
		existing.Status = "published"
		existing.Document = datatypes.JSON(raw)
		if err := db.DB.Save(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish page"})
			return
		}
	} else {
		row := db.Page{
			Slug:       slug,
			MerchantID: merchant.ID,
			Title:      cfg.Title,
			Price:      cfg.BasePrice.String(),
			Status:     "published",
			Document:   datatypes.JSON(raw),
		}
		if err := db.DB.Create(&row).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish page"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"slug": slug, "status": "published"})
}

// ListPages returns the merchant's page index, optionally filtered by a
// title/slug substring.
func ListPages(c *gin.Context) {
	merchant := c.MustGet("merchant").(db.Merchant)
	query := db.DB.Where("merchant_id = ?", merchant.ID)

	if q := c.Query("q"); q != "" {
		like := "%" + q + "%"
		query = query.Where("title LIKE ? OR slug LIKE ?", like, like)
	}

	var pages []db.Page
	if err := query.Order("updated_at DESC").Find(&pages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pages"})
		return
	}

	index := make([]gin.H, 0, len(pages))
	for _, p := range pages {
		index = append(index, gin.H{
			"slug":          p.Slug,
			"title":         p.Title,
			"price":         p.Price,
			"status":        p.Status,
			"sale_count":    p.SaleCount,
			"revenue":       p.Revenue,
			"last_modified": p.UpdatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"pages": index})
}

// GetPublicPage is the storefront view: the sanitized slice of the
// configuration a visitor needs to render the page and start checkout.
func GetPublicPage(c *gin.Context) {
	slug := c.Param("slug")

	cfg, err := PageStore{}.Load(slug)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Website not found / published yet."})
		return
	}

	products := make([]gin.H, 0, len(cfg.Products))
	for _, p := range cfg.Products {
		products = append(products, gin.H{
			"id":          p.ID,
			"title":       p.Title,
			"description": p.Description,
			"image":       p.Image,
			"price":       p.Price,
		})
	}

	body := gin.H{
		"slug":        cfg.Slug,
		"title":       cfg.Title,
		"description": cfg.Description,
		"cta":         cfg.CTA,
		"price":       cfg.BasePrice,
		"gst_percent": cfg.GSTPercent,
		"products":    products,

		"pay_what_you_want":  cfg.Mode == page.BuyerChooses,
		"email_verification": cfg.EmailVerificationRequired,
		"phone_verification": cfg.PhoneVerificationRequired,

		"purchasable": cfg.Purchasable(time.Now()),
	}
	if pct := pricing.DiscountPercent(cfg); pct > 0 {
		body["discount_price"] = cfg.DiscountPrice
		body["discount_percent"] = pct
	}

	c.JSON(http.StatusOK, body)
}

// PageQR renders the public page URL as a PNG QR code for sharing.
func PageQR(c *gin.Context) {
	slug := c.Param("slug")

	if !page.ValidSlug(slug) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Website not found / published yet."})
		return
	}

	var row db.Page
	if err := db.DB.First(&row, "slug = ?", slug).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Website not found / published yet."})
		return
	}

	url := fmt.Sprintf("%s/p/%s", os.Getenv("PUBLIC_BASE_URL"), slug)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// PageStats exposes the sale ledger aggregate to the owning merchant.
func PageStats(c *gin.Context) {
	merchant := c.MustGet("merchant").(db.Merchant)
	slug := c.Param("slug")

	var row db.Page
	if err := db.DB.First(&row, "slug = ? AND merchant_id = ?", slug, merchant.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slug":       row.Slug,
		"sale_count": row.SaleCount,
		"revenue":    row.Revenue,
	})
}
