package cart

import (
	"context"

	"storefront-be/internal/logger"
	"storefront-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	GetOrCreate(ctx context.Context, owner Owner) (*Cart, error)
	Find(ctx context.Context, owner Owner) (*Cart, error)
	MergeGuestIntoAccount(ctx context.Context, sessionKey string, userID uint) error
	OwnerFor(ctx context.Context, userID *uint, sessionKey string) (Owner, error)
	AddLine(ctx context.Context, owner Owner, productID uint, quantity int) (*CartLine, error)
	SetQuantity(ctx context.Context, owner Owner, lineID uint, quantity int) error
	RemoveLine(ctx context.Context, owner Owner, lineID uint) error
	Clear(ctx context.Context, owner Owner) error
	Summary(ctx context.Context, owner Owner) (*Summary, error)
}

type Summary struct {
	CartID    uint            `json:"cart_id"`
	Lines     []CartLine      `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type service struct {
	repo        Repository
	productRepo product.Repository
}

func NewService(repo Repository, productRepo product.Repository) Service {
	return &service{repo: repo, productRepo: productRepo}
}

// GetOrCreate returns the owner's cart with its lines, creating an empty one
// on first use.
func (s *service) GetOrCreate(ctx context.Context, owner Owner) (*Cart, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}

	c, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c, err = s.repo.Create(ctx, owner)
		if err != nil {
			return nil, err
		}
	}

	lines, err := s.repo.GetLines(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Lines = lines
	return c, nil
}

// Find is GetOrCreate without the create: nil, nil when there is no cart.
func (s *service) Find(ctx context.Context, owner Owner) (*Cart, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}

	c, err := s.repo.GetByOwner(ctx, owner)
	if err != nil || c == nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Lines = lines
	return c, nil
}

// MergeGuestIntoAccount is a no-op when there is nothing to merge, so calling
// it on every authenticated request is safe.
func (s *service) MergeGuestIntoAccount(ctx context.Context, sessionKey string, userID uint) error {
	if sessionKey == "" || userID == 0 {
		return nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MergeGuestIntoAccount"),
		zap.Uint("user_id", userID),
	)

	guest, err := s.repo.GetByOwner(ctx, GuestOwner(sessionKey))
	if err != nil {
		return err
	}
	if guest == nil {
		return nil
	}

	account, err := s.repo.GetByOwner(ctx, AccountOwner(userID))
	if err != nil {
		return err
	}
	if account == nil {
		account, err = s.repo.Create(ctx, AccountOwner(userID))
		if err != nil {
			return err
		}
	}
	if account.ID == guest.ID {
		return nil
	}

	if err := s.repo.Merge(ctx, guest.ID, account.ID); err != nil {
		log.Error("failed to merge guest cart", zap.Error(err))
		return err
	}
	return nil
}

// OwnerFor picks the cart owner for a request. Authenticated requests first
// fold the session's guest cart into the account cart.
func (s *service) OwnerFor(ctx context.Context, userID *uint, sessionKey string) (Owner, error) {
	if userID == nil || *userID == 0 {
		if sessionKey == "" {
			return Owner{}, ErrInvalidOwner
		}
		return GuestOwner(sessionKey), nil
	}

	if err := s.MergeGuestIntoAccount(ctx, sessionKey, *userID); err != nil {
		return Owner{}, err
	}
	return AccountOwner(*userID), nil
}

func (s *service) AddLine(ctx context.Context, owner Owner, productID uint, quantity int) (*CartLine, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddLine"),
		zap.Uint("product_id", productID),
	)

	p, err := s.productRepo.GetProductByID(ctx, product.GetProductOptions{
		ProductID:     productID,
		OnlyPublished: true,
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}

	c, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	line, err := s.incrementExisting(ctx, c.ID, productID, quantity)
	if err != nil {
		return nil, err
	}
	if line == nil {
		line, err = s.repo.CreateLine(ctx, CreateLineParams{
			CartID:    c.ID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: p.Price,
		})
		if isUniqueViolation(err) {
			// lost an insert race for the same product
			line, err = s.incrementExisting(ctx, c.ID, productID, quantity)
			if err == nil && line == nil {
				err = ErrCartItemNotFound
			}
		}
		if err != nil {
			log.Error("failed to add cart line", zap.Error(err))
			return nil, err
		}
	}

	line.Title = p.Title
	return line, nil
}

// incrementExisting returns nil, nil when the product is not in the cart yet.
func (s *service) incrementExisting(ctx context.Context, cartID, productID uint, quantity int) (*CartLine, error) {
	existing, err := s.repo.GetLineByProduct(ctx, cartID, productID)
	if err != nil || existing == nil {
		return nil, err
	}

	newQty := existing.Quantity + quantity
	if err := s.repo.UpdateLineQuantity(ctx, existing.ID, newQty); err != nil {
		return nil, err
	}
	existing.Quantity = newQty
	return existing, nil
}

func (s *service) SetQuantity(ctx context.Context, owner Owner, lineID uint, quantity int) error {
	c, err := s.Find(ctx, owner)
	if err != nil {
		return err
	}
	if c == nil || c.Line(lineID) == nil {
		return ErrCartItemNotFound
	}

	if quantity <= 0 {
		return s.repo.DeleteLine(ctx, c.ID, lineID)
	}
	return s.repo.UpdateLineQuantity(ctx, lineID, quantity)
}

func (s *service) RemoveLine(ctx context.Context, owner Owner, lineID uint) error {
	c, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCartItemNotFound
	}
	return s.repo.DeleteLine(ctx, c.ID, lineID)
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	c, err := s.repo.GetByOwner(ctx, owner)
	if err != nil || c == nil {
		return err
	}
	return s.repo.ClearLines(ctx, c.ID)
}

func (s *service) Summary(ctx context.Context, owner Owner) (*Summary, error) {
	c, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, l := range c.Lines {
		count += l.Quantity
	}

	return &Summary{
		CartID:    c.ID,
		Lines:     c.Lines,
		ItemCount: count,
		Subtotal:  c.Subtotal(),
	}, nil
}
