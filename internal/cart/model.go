package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Owner identifies exactly one cart: an account id or an anonymous session key.
type Owner struct {
	UserID     *uint
	SessionKey string
}

func AccountOwner(userID uint) Owner {
	return Owner{UserID: &userID}
}

func GuestOwner(sessionKey string) Owner {
	return Owner{SessionKey: sessionKey}
}

func (o Owner) IsAccount() bool {
	return o.UserID != nil
}

// Valid enforces the account XOR session-key rule.
func (o Owner) Valid() bool {
	if o.UserID != nil {
		return *o.UserID != 0 && o.SessionKey == ""
	}
	return o.SessionKey != ""
}

type Cart struct {
	ID         uint
	UserID     *uint
	SessionKey *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Lines []CartLine
}

type CartLine struct {
	ID        uint            `json:"id"`
	CartID    uint            `json:"-"`
	ProductID uint            `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums snapshot price times quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Line(lineID uint) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i]
		}
	}
	return nil
}

type CreateLineParams struct {
	CartID    uint
	ProductID uint
	Quantity  int
	UnitPrice decimal.Decimal
}
