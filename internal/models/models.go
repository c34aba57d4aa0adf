package models

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	Phone        *string   `gorm:"uniqueIndex"              json:"phone,omitempty"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CartItem belongs to exactly one owner: a registered user or a guest
// session, never both. OwnerKey is the derived partition key
// ("user:<id>" / "guest:<sid>"), giving the merge-upsert a single
// conflict target across both owner kinds.
type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	SessionID *string   `gorm:"index" json:"session_id,omitempty"`
	OwnerKey  string    `gorm:"not null;uniqueIndex:idx_cart_owner_product,priority:1" json:"-"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_owner_product,priority:2" json:"product_id"`
	Quantity  uint      `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID              uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string           `gorm:"not null" json:"name"`
	Description     string           `json:"description"`
	Price           float64          `gorm:"not null" json:"price"`
	DiscountPercent *float64         `gorm:"check:discount_percent >= 0 AND discount_percent <= 100" json:"discount_percent,omitempty"`
	ImageURL        string           `json:"image_url"`
	HoverImageURL   string           `json:"hover_image_url"`
	IsTop           bool             `gorm:"default:false" json:"is_top"`
	IsHotDeal       bool             `gorm:"default:false" json:"is_hot_deal"`
	OfferStartsAt   *time.Time       `json:"offer_starts_at,omitempty"`
	OfferEndsAt     *time.Time       `json:"offer_ends_at,omitempty"`
	Variants        []ProductVariant `gorm:"foreignKey:ProductID" json:"variants"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type ProductVariant struct {
	ID        uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Level     int             `json:"level"`
	Name      string          `gorm:"not null" json:"name"`
	Options   []VariantOption `gorm:"foreignKey:VariantID" json:"options"`
}

type VariantOption struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	VariantID   uint    `gorm:"index;not null" json:"variant_id"`
	OptionName  string  `gorm:"not null" json:"option_name"`
	OptionPrice float64 `gorm:"check:option_price >= 0" json:"option_price"`
	OptionImage string  `json:"option_image"`
}

// Order is an immutable snapshot taken at checkout time. Items carry the
// discount-applied unit price, so later catalog edits never change what
// the customer was charged.
type Order struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        *uint           `gorm:"index" json:"user_id,omitempty"`
	SessionID     *string         `gorm:"index" json:"session_id,omitempty"`
	Items         json.RawMessage `gorm:"type:jsonb;not null" json:"items"`
	Total         float64         `gorm:"not null" json:"total"`
	Customer      json.RawMessage `gorm:"type:jsonb;not null" json:"customer"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `gorm:"not null;default:pending" json:"status"`
	OrderDate     time.Time       `json:"order_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Banner struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title    string `json:"title"`
	ImageURL string `gorm:"not null" json:"image_url"`
	LinkURL  string `json:"link_url"`
	Position int    `json:"position"`
}

type Category struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	ImageURL string `json:"image_url"`
}

type FooterBlock struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Section string `gorm:"index;not null" json:"section"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
