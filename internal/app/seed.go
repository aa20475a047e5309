package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// seedFixture - начальный каталог и пользователи для in-memory хранилища.
type seedFixture struct {
	Users    []seedUser    `mapstructure:"users"`
	Products []seedProduct `mapstructure:"products"`
}

type seedUser struct {
	ID    string `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
	Phone string `mapstructure:"phone"`
	Role  string `mapstructure:"role"`
}

type seedProduct struct {
	ID                   string `mapstructure:"id"`
	Name                 string `mapstructure:"name"`
	Price                int64  `mapstructure:"price"`
	Stock                int32  `mapstructure:"stock"`
	IsActive             *bool  `mapstructure:"isActive"`
	PrescriptionRequired bool   `mapstructure:"prescriptionRequired"`
}

// loadSeedFile читает фикстуру (JSON или YAML по расширению).
// Пустой путь означает пустое хранилище.
func loadSeedFile(path string) ([]domain.User, []domain.Product, error) {
	if path = strings.TrimSpace(path); path == "" {
		return nil, nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var fixture seedFixture
	if err := v.Unmarshal(&fixture); err != nil {
		return nil, nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}

	users, err := fixture.users()
	if err != nil {
		return nil, nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	products, err := fixture.products()
	if err != nil {
		return nil, nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return users, products, nil
}

func (f seedFixture) users() ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.Users))
	seen := make(map[string]struct{}, len(f.Users))
	for i, u := range f.Users {
		// Токены ссылаются на пользователя по ObjectID, поэтому id должен разбираться.
		id, err := domain.NormalizeUserReference(u.ID)
		if err != nil {
			return nil, fmt.Errorf("user #%d: %w", i, err)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("user #%d: duplicate id %s", i, id)
		}
		seen[id] = struct{}{}

		role := domain.RoleUser
		if u.Role == domain.RoleAdmin {
			role = domain.RoleAdmin
		}
		out = append(out, domain.User{ID: id, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: role})
	}
	return out, nil
}

func (f seedFixture) products() ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(f.Products))
	seen := make(map[string]struct{}, len(f.Products))
	var errs []error
	for i, p := range f.Products {
		id := strings.TrimSpace(p.ID)
		switch {
		case id == "":
			errs = append(errs, fmt.Errorf("product #%d: id is required", i))
			continue
		case p.Price < 0 || p.Stock < 0:
			errs = append(errs, fmt.Errorf("product %s: price and stock must not be negative", id))
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("product %s: duplicate id", id))
			continue
		}
		seen[id] = struct{}{}

		active := p.IsActive == nil || *p.IsActive
		out = append(out, domain.Product{
			ID:                   id,
			Name:                 p.Name,
			Price:                p.Price,
			Stock:                p.Stock,
			IsActive:             active,
			PrescriptionRequired: p.PrescriptionRequired,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
