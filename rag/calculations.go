package rag

import (
	"fmt"
	"strconv"
	"strings"

	"medquery/database"
)

// CalculationType is the closed set of derived-calculation kinds produced
// by the health calculator. Unknown kinds fall back to a generic rendering
// rather than being dropped.
type CalculationType string

const (
	CalcBMI             CalculationType = "BMI"
	CalcBMR             CalculationType = "BMR"
	CalcTDEE            CalculationType = "TDEE"
	CalcBodyFat         CalculationType = "BodyFat"
	CalcMaxHeartRate    CalculationType = "MaxHeartRate"
	CalcMAP             CalculationType = "MAP"
	CalcDailyCalories   CalculationType = "DailyCalories"
	CalcMacronutrients  CalculationType = "Macronutrients"
	CalcVO2Max          CalculationType = "VO2Max"
	CalcWaterNeeds      CalculationType = "WaterNeeds"
	CalcBodyWater       CalculationType = "BodyWater"
	CalcIdealBodyWeight CalculationType = "IdealBodyWeight"
	CalcBodySurfaceArea CalculationType = "BodySurfaceArea"
)

type calcFormatter func(data map[string]any) string

var calcFormatters = map[CalculationType]calcFormatter{
	CalcBMI: func(d map[string]any) string {
		return fmt.Sprintf("BMI %s (%s)", field(d, "bmi"), field(d, "category"))
	},
	CalcBMR: func(d map[string]any) string {
		return fmt.Sprintf("BMR %s kcal/hari", field(d, "bmr"))
	},
	CalcTDEE: func(d map[string]any) string {
		return fmt.Sprintf("TDEE %s kcal/hari (Aktivitas: %s)", field(d, "tdee"), field(d, "activity_level"))
	},
	CalcBodyFat: func(d map[string]any) string {
		return fmt.Sprintf("Body Fat %s%% (%s)", field(d, "body_fat_percentage"), field(d, "category"))
	},
	CalcMaxHeartRate: func(d map[string]any) string {
		return fmt.Sprintf("Max Heart Rate %s bpm", field(d, "max_heart_rate"))
	},
	CalcMAP: func(d map[string]any) string {
		return fmt.Sprintf("MAP %s mmHg (%s)", field(d, "mean_arterial_pressure"), field(d, "category"))
	},
	CalcDailyCalories: func(d map[string]any) string {
		return fmt.Sprintf("Kebutuhan Kalori %s kcal/hari (Tujuan: %s)", field(d, "daily_calories"), field(d, "goal"))
	},
	CalcMacronutrients: func(d map[string]any) string {
		return fmt.Sprintf("Protein: %sg, Karbohidrat: %sg, Lemak: %sg",
			nestedField(d, "protein", "grams"),
			nestedField(d, "carbohydrates", "grams"),
			nestedField(d, "fat", "grams"))
	},
	CalcVO2Max: func(d map[string]any) string {
		return fmt.Sprintf("VO2 Max %s ml/kg/min (%s)", field(d, "vo2_max"), field(d, "category"))
	},
	CalcWaterNeeds: func(d map[string]any) string {
		return fmt.Sprintf("Kebutuhan Air %s liter/hari", field(d, "daily_water_needs"))
	},
	CalcBodyWater: func(d map[string]any) string {
		return fmt.Sprintf("Body Water %s%%", field(d, "body_water_percentage"))
	},
	CalcIdealBodyWeight: func(d map[string]any) string {
		return fmt.Sprintf("Berat Badan Ideal %s kg", field(d, "ideal_body_weight"))
	},
	CalcBodySurfaceArea: func(d map[string]any) string {
		return fmt.Sprintf("Body Surface Area %s m2", field(d, "body_surface_area"))
	},
}

// formatCalculation renders one stored calculation result line.
func formatCalculation(c database.Calculation) string {
	formatter, ok := calcFormatters[CalculationType(c.CalculationType)]
	var result string
	if ok {
		result = formatter(c.ResultData)
	} else {
		result = fmt.Sprint(c.ResultData)
	}
	return fmt.Sprintf("[%s] %s: %s", formatDate(c.CalculatedAt), c.CalculationType, result)
}

// composeCalculations renders the always-include derived-calculation
// block, or "" when the user has no stored calculations.
func composeCalculations(calcs []database.Calculation) string {
	if len(calcs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(calcs))
	for _, c := range calcs {
		lines = append(lines, formatCalculation(c))
	}
	return "=== Data Perhitungan Kesehatan ===\n" + strings.Join(lines, "\n")
}

// field renders one JSON value as display text; "N/A" when missing.
func field(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return "N/A"
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func nestedField(data map[string]any, key, sub string) string {
	inner, ok := data[key].(map[string]any)
	if !ok {
		return "N/A"
	}
	return field(inner, sub)
}
