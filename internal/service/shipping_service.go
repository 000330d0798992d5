package service

import (
	"strconv"
	"strings"

	"github.com/restomueble/storefront/internal/models"
)

// 配送区域
const (
	ShippingZoneCDMX  = "cdmx"
	ShippingZoneMetro = "metro"
	ShippingZoneMain  = "main"
	ShippingZoneRest  = "rest"
)

type postalRange struct {
	from, to int
}

type shippingZone struct {
	key      string
	carrier  string
	cost     int64
	days     string
	postal   []postalRange
	fallback bool
}

// 按顺序匹配，第一个命中的区域生效
var shippingZones = []shippingZone{
	{
		key:     ShippingZoneCDMX,
		carrier: "Estafeta / DHL",
		cost:    0,
		days:    "1-2 días hábiles",
		postal:  []postalRange{{1000, 16999}},
	},
	{
		key:     ShippingZoneMetro,
		carrier: "Estafeta / DHL",
		cost:    149,
		days:    "2-3 días hábiles",
		postal:  []postalRange{{50000, 57999}, {52000, 54000}, {40000, 43999}},
	},
	{
		key:     ShippingZoneMain,
		carrier: "Estafeta / FedEx",
		cost:    299,
		days:    "3-5 días hábiles",
		postal:  []postalRange{{44000, 49999}, {64000, 67999}, {72000, 75999}, {76000, 76999}},
	},
	{
		key:      ShippingZoneRest,
		carrier:  "Estafeta",
		cost:     450,
		days:     "5-8 días hábiles",
		fallback: true,
	},
}

// ShippingQuote 运费估算结果
type ShippingQuote struct {
	PostalCode string       `json:"postal_code"`
	Zone       string       `json:"zone"`
	Carrier    string       `json:"carrier"`
	Cost       models.Money `json:"cost"`
	Free       bool         `json:"free"`
	Days       string       `json:"days"`
}

// ShippingService 按邮编区间估算运费（仅供参考，最终以结账为准）
type ShippingService struct{}

// NewShippingService 创建运费估算服务
func NewShippingService() *ShippingService {
	return &ShippingService{}
}

// Quote 估算运费；邮编去掉非数字后必须恰好 5 位
func (s *ShippingService) Quote(postalCode string) (*ShippingQuote, error) {
	clean := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.TrimSpace(postalCode))
	if len(clean) != 5 {
		return nil, ErrPostalCodeInvalid
	}
	num, err := strconv.Atoi(clean)
	if err != nil {
		return nil, ErrPostalCodeInvalid
	}
	for _, zone := range shippingZones {
		if !zone.matches(num) {
			continue
		}
		return &ShippingQuote{
			PostalCode: clean,
			Zone:       zone.key,
			Carrier:    zone.carrier,
			Cost:       models.NewMoneyFromInt(zone.cost),
			Free:       zone.cost == 0,
			Days:       zone.days,
		}, nil
	}
	return nil, ErrPostalCodeInvalid
}

func (z shippingZone) matches(code int) bool {
	if z.fallback {
		return true
	}
	for _, r := range z.postal {
		if code >= r.from && code <= r.to {
			return true
		}
	}
	return false
}
