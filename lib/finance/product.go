package finance

import (
	"fmt"
	"strings"
)

type ProductType string

const (
	CASH        ProductType = "cash"
	STOCK       ProductType = "stock"
	ETF         ProductType = "etf"
	FUND        ProductType = "fund"
	CRYPTO      ProductType = "crypto"
	BOND        ProductType = "bond"
	REAL_ESTATE ProductType = "real_estate"
	PORTFOLIO   ProductType = "portfolio"
)

var productTypes = []ProductType{
	CASH,
	STOCK,
	ETF,
	FUND,
	CRYPTO,
	BOND,
	REAL_ESTATE,
	PORTFOLIO,
}

func ProductTypes() []ProductType {
	out := make([]ProductType, len(productTypes))
	copy(out, productTypes)
	return out
}

func (t ProductType) Valid() bool {
	for _, pt := range productTypes {
		if pt == t {
			return true
		}
	}
	return false
}

func ParseProductType(s string) (ProductType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	// older configs spell it without the underscore
	if s == "realestate" {
		return REAL_ESTATE, nil
	}
	pt := ProductType(s)
	if !pt.Valid() {
		return "", fmt.Errorf("unknown product type %q", s)
	}
	return pt, nil
}

// UnmarshalText lets mapping tables be keyed by product type in config files.
func (t *ProductType) UnmarshalText(text []byte) error {
	pt, err := ParseProductType(string(text))
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

type Platform string

const (
	MYINVESTOR Platform = "myinvestor"
)

var platforms = []Platform{MYINVESTOR}

func (p Platform) Valid() bool {
	for _, known := range platforms {
		if known == p {
			return true
		}
	}
	return false
}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// Product is a single unit of held value (an account, a fund, an ETF
// position...) in the platform's native currency. Products are values,
// nothing mutates them once Normalize returns.
type Product struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         ProductType `json:"type"`
	Platform     Platform    `json:"platform"`
	InitialValue float64     `json:"initial_value"`
	Value        float64     `json:"value"`
	Labels       string      `json:"labels"`
}

// ROI is the return on investment as a percentage. It is exactly 0 when
// the initial value is 0, which does not mean the data is missing.
func (p Product) ROI() float64 {
	if p.InitialValue == 0 {
		return 0
	}
	return (p.Value - p.InitialValue) / p.InitialValue * 100
}

func (p Product) String() string {
	return fmt.Sprintf(
		"Product(id=%s, name=%s, type=%s, initial_value=%g, value=%g, roi=%.2f%%)",
		p.ID, p.Name, p.Type, p.InitialValue, p.Value, p.ROI(),
	)
}
