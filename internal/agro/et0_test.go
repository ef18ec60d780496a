package agro

import (
	"database/sql"
	"testing"
)

func f(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func TestEstimateET0(t *testing.T) {
	tests := []struct {
		name string
		in   ET0Inputs
		want float64
	}{
		{
			name: "all defaults",
			in:   ET0Inputs{},
			// mean 20C, wind factor 1.2, humidity factor 0.35
			want: 1.43,
		},
		{
			name: "warm dry windy day",
			in:   ET0Inputs{TempMax: f(30), TempMin: f(20), WindSpeed: f(5), Humidity: f(40)},
			want: 3.83,
		},
		{
			name: "cold humid day floors at minimum",
			in:   ET0Inputs{TempMax: f(5), TempMin: f(0), WindSpeed: f(0), Humidity: f(95)},
			want: ET0Floor,
		},
		{
			name: "saturated air floors at minimum",
			in:   ET0Inputs{TempMax: f(25), TempMin: f(15), WindSpeed: f(2), Humidity: f(100)},
			want: ET0Floor,
		},
		{
			name: "partial inputs take defaults for the rest",
			in:   ET0Inputs{TempMax: f(25), TempMin: f(15)},
			want: 1.43,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateET0(tt.in)
			if got != tt.want {
				t.Errorf("EstimateET0() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateET0_AlwaysPositive(t *testing.T) {
	for tmax := -20.0; tmax <= 50; tmax += 7 {
		for hum := 0.0; hum <= 100; hum += 12.5 {
			got := EstimateET0(ET0Inputs{TempMax: f(tmax), TempMin: f(tmax - 10), Humidity: f(hum)})
			if got < ET0Floor {
				t.Fatalf("EstimateET0(tmax=%v hum=%v) = %v, below floor", tmax, hum, got)
			}
		}
	}
}
