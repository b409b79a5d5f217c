package signatures

// defaultTargets lists the process names inspected by a scan. Names are
// matched exactly, including case.
var defaultTargets = []string{
	"Minecraft.Windows.exe", // Bedrock (UWP)
	"Minecraft.exe",         // Bedrock (GDK)
	"javaw.exe",
	"java.exe",
	"MinecraftLauncher.exe",
}

var defaultSignatures = map[string]Entry{
	"horion.dll":       {DisplayName: "Horion", Risk: RiskDangerous, Description: "Popular Minecraft Bedrock hack client"},
	"nitr0.exe":        {DisplayName: "Nitr0", Risk: RiskDangerous, Description: "Minecraft hack client executable"},
	"wurst.dll":        {DisplayName: "Wurst", Risk: RiskDangerous, Description: "Wurst Minecraft hack client"},
	"impact.dll":       {DisplayName: "Impact", Risk: RiskDangerous, Description: "Impact Minecraft hack client"},
	"aristois.dll":     {DisplayName: "Aristois", Risk: RiskSuspicious, Description: "Aristois utility mod"},
	"meteor.dll":       {DisplayName: "Meteor", Risk: RiskDangerous, Description: "Meteor Minecraft hack client"},
	"liquidbounce.dll": {DisplayName: "LiquidBounce", Risk: RiskDangerous, Description: "LiquidBounce hack client"},
	"sigma.dll":        {DisplayName: "Sigma", Risk: RiskDangerous, Description: "Sigma Minecraft hack client"},
}

var defaultPatterns = []string{
	"inject", "hook", "bypass", "cheat", "hack",
	"exploit", "mod_menu", "overlay", "trainer",
}

// DefaultTargets returns a copy of the built-in process allow-list.
func DefaultTargets() []string {
	return append([]string(nil), defaultTargets...)
}

// DefaultSignatures returns a copy of the built-in signature entries.
func DefaultSignatures() map[string]Entry {
	out := make(map[string]Entry, len(defaultSignatures))
	for k, v := range defaultSignatures {
		out[k] = v
	}
	return out
}

func DefaultPatterns() []string {
	return append([]string(nil), defaultPatterns...)
}

// DefaultTable builds the built-in signature table.
func DefaultTable() *Table {
	t, err := NewTable(defaultSignatures)
	if err != nil {
		panic("signatures: invalid built-in table: " + err.Error())
	}
	return t
}

func DefaultPatternList() *PatternList {
	return NewPatternList(defaultPatterns)
}
