package plant

// Scenario fields settable one at a time, by their JSON names.
var fields = []string{
	"sink_in_temp",
	"sink_out_target",
	"sink_flow_kg_h",
	"mode",
	"source_in_temp",
	"target_source_out",
	"source_flow_vol",
	"fuel_type",
	"efficiency",
	"strategy",
	"recovery_type",
	"excess_air",
	"is_manual_cop",
	"manual_cop",
}

func Fields() []string {
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

func IsField(name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
