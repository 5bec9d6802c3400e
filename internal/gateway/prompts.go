package gateway

import (
	"fmt"
	"strings"

	"github.com/dvloznov/smart-finance/internal/domain"
	"google.golang.org/genai"
)

// Prompts are written in Traditional Chinese (Taiwan), the product's display
// language. Each builder returns the complete instruction for one call.

func categoryList() string {
	return "[" + strings.Join(domain.PromptCategories, ", ") + "]"
}

func parseTextPrompt(text, today string) string {
	return "你是一個記帳助手。請解析以下文字並返回結構化 JSON：\n" +
		fmt.Sprintf("文字： %q\n", text) +
		"要求：\n" +
		"1. amount: 數字\n" +
		"2. category: 從 " + categoryList() + " 中選一\n" +
		"3. description: 簡短描述\n" +
		"4. type: income 或 expense\n" +
		"5. merchant: 識別商家（若有）\n\n" +
		"現在日期是 " + today + "。\n"
}

func parseImagePrompt(today string) string {
	return "你是一個記帳助手。請從這張截圖中提取所有的記帳明細，並返回 JSON 陣列。\n" +
		"每個物件包含：\n" +
		"1. amount: 數字\n" +
		"2. category: 從 " + categoryList() + " 中選一\n" +
		"3. description: 描述\n" +
		"4. type: income 或 expense\n" +
		"5. date: YYYY-MM-DD (若無則用今天：" + today + ")\n"
}

func analysisPrompt(netWorth, recentJSON string, hourlyWage int) string {
	return "基於以下財務數據提供深度分析：\n" +
		"- 總資產：" + netWorth + "\n" +
		"- 最近交易：" + recentJSON + "\n\n" +
		"請包含以下三個模塊：\n" +
		"1. 緊急預備金測試（目前生活水準能撐多久）\n" +
		fmt.Sprintf("2. 勞動價值提醒（以時薪 %d 元計算，最近的高額支出代表多少勞動時間）\n", hourlyWage) +
		"3. 未來 3 個月現金流警示。\n" +
		"語言：繁體中文（台灣），語氣：親切且具有啟發性。\n"
}

func simulationPrompt(scenario, statusJSON string) string {
	return fmt.Sprintf("模擬情境： %q\n", scenario) +
		"當前狀態： " + statusJSON + "\n\n" +
		"請評估此決定對未來 12 個月現金流的影響。\n" +
		"返回 JSON：\n" +
		"- scenario: 簡短描述\n" +
		"- impactOnCashFlow: 具體的數字變動與存款走勢\n" +
		"- recommendation: 專業建議\n" +
		"- safetyScore: 0-100（安全分數）\n"
}

// Response schemas.

func draftSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"amount":      {Type: genai.TypeNumber},
			"category":    {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"type":        {Type: genai.TypeString},
			"merchant":    {Type: genai.TypeString},
		},
	}
}

func draftListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"amount":      {Type: genai.TypeNumber},
				"category":    {Type: genai.TypeString},
				"description": {Type: genai.TypeString},
				"type":        {Type: genai.TypeString},
				"date":        {Type: genai.TypeString},
			},
			Required: []string{"amount", "category", "description", "type", "date"},
		},
	}
}

func simulationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scenario":         {Type: genai.TypeString},
			"impactOnCashFlow": {Type: genai.TypeString},
			"recommendation":   {Type: genai.TypeString},
			"safetyScore":      {Type: genai.TypeNumber},
		},
	}
}

func jsonConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}
