package service

import (
	"testing"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
)

// mockSettingRepo 内存实现，避免设置归一化测试依赖数据库
type mockSettingRepo struct {
	values map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{values: make(map[string]models.JSON)}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.values[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func TestUpdateCoinSettingNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeyCoinConfig, map[string]interface{}{
		"is_active":  "yes",
		"coin_price": "2.5",
	})
	if err != nil {
		t.Fatalf("update coin config failed: %v", err)
	}
	if result["is_active"] != true {
		t.Fatalf("unexpected is_active: %v", result["is_active"])
	}
	if result["coin_price"] != "2.5" {
		t.Fatalf("unexpected coin_price: %v", result["coin_price"])
	}

	// 非法币价回退默认值
	result, err = svc.Update(constants.SettingKeyCoinConfig, map[string]interface{}{
		"coin_price": "-1",
	})
	if err != nil {
		t.Fatalf("update coin config failed: %v", err)
	}
	if result["coin_price"] != "1" {
		t.Fatalf("invalid coin_price should fall back, got %v", result["coin_price"])
	}
	if result["is_active"] != false {
		t.Fatalf("unexpected is_active default: %v", result["is_active"])
	}
}

func TestUpdateSiteSettingNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeySiteConfig, map[string]interface{}{
		"brand": map[string]interface{}{
			"site_name": "  分销商城  ",
			"unknown":   "dropped",
		},
		"contact": map[string]interface{}{
			"telegram": "  https://t.me/demo  ",
			"whatsapp": 123,
		},
		"seo": map[string]interface{}{
			"title": map[string]interface{}{
				"zh-CN": "  标题  ",
				"en-US": "  Title  ",
			},
		},
		"about": map[string]interface{}{
			"hero": map[string]interface{}{
				"title": map[string]interface{}{
					"zh-CN": "  关于我们  ",
					"en-US": "  About Us  ",
				},
			},
			"introduction": map[string]interface{}{
				"zh-CN": "  我们为会员提供套餐分销服务  ",
				"zh-TW": 123,
			},
			"services": map[string]interface{}{
				"title": map[string]interface{}{
					"zh-CN": "  我们的服务  ",
				},
				"items": []interface{}{
					map[string]interface{}{
						"zh-CN": "  服务项一  ",
						"en-US": "  Service One  ",
					},
					map[string]interface{}{
						"zh-CN": "",
						"zh-TW": "",
						"en-US": "",
					},
					"invalid",
				},
			},
		},
		"scripts": []interface{}{
			map[string]interface{}{
				"name":     "  analytics  ",
				"enabled":  "true",
				"position": "footer",
				"code":     "  console.log(1)  ",
			},
			map[string]interface{}{
				"name": "empty",
				"code": "   ",
			},
		},
		"languages": []interface{}{" zh-CN ", "en-US", "", "en-US"},
	})
	if err != nil {
		t.Fatalf("update site config failed: %v", err)
	}

	brand, ok := result["brand"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid brand payload type: %T", result["brand"])
	}
	if brand["site_name"] != "分销商城" {
		t.Fatalf("unexpected brand.site_name: %v", brand["site_name"])
	}
	if _, exists := brand["unknown"]; exists {
		t.Fatalf("unknown brand field should be dropped")
	}

	contact, ok := result["contact"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid contact payload type: %T", result["contact"])
	}
	if contact["telegram"] != "https://t.me/demo" {
		t.Fatalf("unexpected telegram: %v", contact["telegram"])
	}
	if contact["whatsapp"] != "" {
		t.Fatalf("unexpected whatsapp: %v", contact["whatsapp"])
	}

	seo, ok := result["seo"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid seo payload type: %T", result["seo"])
	}
	title, ok := seo["title"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid seo.title payload type: %T", seo["title"])
	}
	if title["zh-CN"] != "标题" || title["en-US"] != "Title" || title["zh-TW"] != "" {
		t.Fatalf("unexpected seo.title payload: %+v", title)
	}

	legal, ok := result["legal"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid legal payload type: %T", result["legal"])
	}
	privacy, ok := legal["privacy"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid legal.privacy payload type: %T", legal["privacy"])
	}
	if privacy["zh-CN"] != "" || privacy["zh-TW"] != "" || privacy["en-US"] != "" {
		t.Fatalf("unexpected legal.privacy payload: %+v", privacy)
	}

	about, ok := result["about"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid about payload type: %T", result["about"])
	}
	hero, ok := about["hero"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid about.hero payload type: %T", about["hero"])
	}
	heroTitle, ok := hero["title"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid about.hero.title payload type: %T", hero["title"])
	}
	if heroTitle["zh-CN"] != "关于我们" || heroTitle["en-US"] != "About Us" || heroTitle["zh-TW"] != "" {
		t.Fatalf("unexpected about.hero.title payload: %+v", heroTitle)
	}

	introduction, ok := about["introduction"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid about.introduction payload type: %T", about["introduction"])
	}
	if introduction["zh-CN"] != "我们为会员提供套餐分销服务" || introduction["zh-TW"] != "" {
		t.Fatalf("unexpected about.introduction payload: %+v", introduction)
	}

	services, ok := about["services"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid about.services payload type: %T", about["services"])
	}
	serviceItems, ok := services["items"].([]interface{})
	if !ok {
		t.Fatalf("invalid about.services.items payload type: %T", services["items"])
	}
	if len(serviceItems) != 1 {
		t.Fatalf("blank and malformed service items should be dropped, got %d", len(serviceItems))
	}
	serviceItem, ok := serviceItems[0].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid about.services.items[0] payload type: %T", serviceItems[0])
	}
	if serviceItem["zh-CN"] != "服务项一" || serviceItem["en-US"] != "Service One" || serviceItem["zh-TW"] != "" {
		t.Fatalf("unexpected about.services.items[0] payload: %+v", serviceItem)
	}

	scripts, ok := result["scripts"].([]interface{})
	if !ok {
		t.Fatalf("invalid scripts payload type: %T", result["scripts"])
	}
	if len(scripts) != 1 {
		t.Fatalf("scripts without code should be dropped, got %d", len(scripts))
	}
	script, ok := scripts[0].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid scripts[0] payload type: %T", scripts[0])
	}
	if script["name"] != "analytics" || script["enabled"] != true {
		t.Fatalf("unexpected script payload: %+v", script)
	}
	if script["position"] != "head" {
		t.Fatalf("unknown script position should fall back to head, got %v", script["position"])
	}
	if script["code"] != "console.log(1)" {
		t.Fatalf("unexpected script code: %v", script["code"])
	}

	languages, ok := result["languages"].([]string)
	if !ok {
		t.Fatalf("invalid languages payload type: %T", result["languages"])
	}
	if len(languages) != 2 || languages[0] != "zh-CN" || languages[1] != "en-US" {
		t.Fatalf("unexpected languages: %+v", languages)
	}
}

func TestUpdateSiteSettingNormalizedDefaults(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeySiteConfig, map[string]interface{}{})
	if err != nil {
		t.Fatalf("update site config failed: %v", err)
	}

	brand, ok := result["brand"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid brand payload type: %T", result["brand"])
	}
	if brand["site_name"] != "" {
		t.Fatalf("unexpected default brand payload: %+v", brand)
	}

	about, ok := result["about"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid about payload type: %T", result["about"])
	}
	services, ok := about["services"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid about.services payload type: %T", about["services"])
	}
	serviceItems, ok := services["items"].([]interface{})
	if !ok {
		t.Fatalf("invalid about.services.items payload type: %T", services["items"])
	}
	if len(serviceItems) != 0 {
		t.Fatalf("unexpected default about.services.items size: %d", len(serviceItems))
	}

	scripts, ok := result["scripts"].([]interface{})
	if !ok {
		t.Fatalf("invalid scripts payload type: %T", result["scripts"])
	}
	if len(scripts) != 0 {
		t.Fatalf("unexpected default scripts size: %d", len(scripts))
	}

	// 未提交语言列表时不强行写入
	if _, exists := result["languages"]; exists {
		t.Fatalf("languages should stay absent when not submitted")
	}
}
