package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
)

// CoinSetting 购买赠币配置
// 仅当一笔购买只包含单一套餐（数量不限）时，按 总价/币价 赠送对应数量的币。
type CoinSetting struct {
	IsActive  bool            `json:"is_active"`
	CoinPrice decimal.Decimal `json:"coin_price"`
}

// CoinDefaultSetting 默认赠币配置
func CoinDefaultSetting() CoinSetting {
	return CoinSetting{
		IsActive:  false,
		CoinPrice: decimal.NewFromInt(1),
	}
}

// ValidateCoinSetting 校验赠币配置
func ValidateCoinSetting(setting CoinSetting) error {
	if setting.CoinPrice.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: 币价必须为正", ErrCoinConfigInvalid)
	}
	return nil
}

// CoinSettingToMap 将赠币配置转换为 settings 存储结构
func CoinSettingToMap(setting CoinSetting) map[string]interface{} {
	return map[string]interface{}{
		"is_active":  setting.IsActive,
		"coin_price": setting.CoinPrice.String(),
	}
}

func coinSettingFromJSON(raw models.JSON, fallback CoinSetting) CoinSetting {
	result := fallback

	if activeRaw, ok := raw["is_active"]; ok {
		result.IsActive = parseSettingBool(activeRaw)
	}
	if priceRaw, ok := raw["coin_price"]; ok {
		if parsed, err := parseSettingDecimal(priceRaw); err == nil && parsed.GreaterThan(decimal.Zero) {
			result.CoinPrice = parsed
		}
	}

	return result
}

func normalizeCoinSettingMap(value map[string]interface{}) models.JSON {
	setting := coinSettingFromJSON(models.JSON(value), CoinDefaultSetting())
	return models.JSON(CoinSettingToMap(setting))
}

func parseSettingDecimal(raw interface{}) (decimal.Decimal, error) {
	switch value := raw.(type) {
	case decimal.Decimal:
		return value, nil
	case string:
		return decimal.NewFromString(value)
	case float64:
		return decimal.NewFromFloat(value), nil
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	default:
		return decimal.Zero, fmt.Errorf("无法解析的数值类型: %T", raw)
	}
}

// GetCoinSetting 获取赠币设置（空时回退默认）
func (s *SettingService) GetCoinSetting() (CoinSetting, error) {
	fallback := CoinDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyCoinConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return coinSettingFromJSON(value, fallback), nil
}

// UpdateCoinSetting 更新赠币设置
func (s *SettingService) UpdateCoinSetting(setting CoinSetting) (CoinSetting, error) {
	if err := ValidateCoinSetting(setting); err != nil {
		return CoinDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyCoinConfig, CoinSettingToMap(setting)); err != nil {
		return CoinDefaultSetting(), err
	}
	return setting, nil
}
