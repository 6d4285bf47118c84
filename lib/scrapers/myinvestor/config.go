package myinvestor

import (
	"fmt"

	"finagg/lib/configutil"
	"finagg/lib/finance"
	"finagg/lib/scraper"
)

type Endpoints struct {
	Login      string `json:"login" yaml:"login"`
	Accounts   string `json:"accounts" yaml:"accounts"`
	Portfolios string `json:"portfolios" yaml:"portfolios"`
	// etf positions are served by the platform's stocks endpoint
	Stocks     string `json:"stocks" yaml:"stocks"`
	RealEstate string `json:"real_estate" yaml:"real_estate"`
}

// Credentials support ${VAR} references which are resolved against the
// environment when the scraper is created.
type Credentials struct {
	AccessType string `json:"access_type" yaml:"access_type"`
	Code       string `json:"code" yaml:"code"`
	CustomerID string `json:"customer_id" yaml:"customer_id"`
	DeviceID   string `json:"device_id" yaml:"device_id"`
	OtpID      string `json:"otp_id" yaml:"otp_id"`
	Password   string `json:"password" yaml:"password"`
	Platform   string `json:"platform" yaml:"platform"`
}

func (c Credentials) expand() Credentials {
	return Credentials{
		AccessType: configutil.ExpandEnv(c.AccessType),
		Code:       configutil.ExpandEnv(c.Code),
		CustomerID: configutil.ExpandEnv(c.CustomerID),
		DeviceID:   configutil.ExpandEnv(c.DeviceID),
		OtpID:      configutil.ExpandEnv(c.OtpID),
		Password:   configutil.ExpandEnv(c.Password),
		Platform:   configutil.ExpandEnv(c.Platform),
	}
}

// loginRequest is the body the login endpoint expects, unset optional
// fields are sent as null.
type loginRequest struct {
	AccessType string  `json:"accessType"`
	Code       *string `json:"code"`
	CustomerID string  `json:"customerId"`
	DeviceID   string  `json:"deviceId"`
	OtpID      *string `json:"otpId"`
	Password   string  `json:"password"`
	Plataform  *string `json:"plataform"`
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func (c Credentials) request() loginRequest {
	return loginRequest{
		AccessType: c.AccessType,
		Code:       optional(c.Code),
		CustomerID: c.CustomerID,
		DeviceID:   c.DeviceID,
		OtpID:      optional(c.OtpID),
		Password:   c.Password,
		Plataform:  optional(c.Platform),
	}
}

type Config struct {
	Endpoints   Endpoints              `json:"endpoints" yaml:"endpoints"`
	Credentials Credentials            `json:"credentials" yaml:"credentials"`
	Mapping     finance.MappingTable   `json:"mapping" yaml:"mapping"`
	Session     scraper.SessionOptions `json:"session" yaml:"session"`
}

type mappings struct {
	cash       finance.FieldMapping
	portfolio  finance.FieldMapping
	fund       finance.FieldMapping
	etf        finance.FieldMapping
	realEstate finance.FieldMapping
}

// Validate checks the endpoints and the mapping table of every supported
// category without touching the network.
func (c Config) Validate() error {
	_, err := c.resolve()
	return err
}

func (c Config) resolve() (mappings, error) {
	endpoints := []struct {
		name  string
		value string
	}{
		{"login", c.Endpoints.Login},
		{"accounts", c.Endpoints.Accounts},
		{"portfolios", c.Endpoints.Portfolios},
		{"stocks", c.Endpoints.Stocks},
		{"real_estate", c.Endpoints.RealEstate},
	}
	for _, e := range endpoints {
		if e.value == "" {
			return mappings{}, fmt.Errorf("myinvestor: endpoints.%s is required", e.name)
		}
	}

	var m mappings
	var err error
	m.cash, err = c.Mapping.Require(finance.CASH)
	if err != nil {
		return mappings{}, err
	}
	m.portfolio, err = c.Mapping.Require(finance.PORTFOLIO, finance.KEY_ACCOUNTS, finance.KEY_FUNDS)
	if err != nil {
		return mappings{}, err
	}
	m.fund, err = c.Mapping.Require(finance.FUND)
	if err != nil {
		return mappings{}, err
	}
	m.etf, err = c.Mapping.Require(finance.ETF, finance.KEY_HOLDINGS)
	if err != nil {
		return mappings{}, err
	}
	m.realEstate, err = c.Mapping.Require(finance.REAL_ESTATE)
	if err != nil {
		return mappings{}, err
	}
	return m, nil
}
