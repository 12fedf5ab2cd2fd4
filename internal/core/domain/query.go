package domain

type QueryOptions struct {
	TopK                     int
	Strict                   bool
	UseGenerativeExplanation bool
}

// Query is a transient ranking request, built once per user call.
type Query struct {
	RawText              string
	RequestedIngredients []string
	Exclude              []string
	Options              QueryOptions
}

type RankedRecipe struct {
	Recipe     Recipe
	Score      float64
	IsComplete bool
}

type Intent string

const (
	IntentPlan         Intent = "plan"
	IntentSubstitute   Intent = "substitute"
	IntentScale        Intent = "scale"
	IntentShoppingList Intent = "shopping_list"
	IntentUnknown      Intent = "unknown"
)

// AgentReply is the structured outcome of one agent turn.
type AgentReply struct {
	Intent            Intent              `json:"intent"`
	Reply             string              `json:"reply"`
	Results           []RankedRecipe      `json:"-"`
	Suggestions       []string            `json:"suggestions,omitempty"`
	ShoppingList      []string            `json:"shopping_list,omitempty"`
	ScaledIngredients []string            `json:"ingredients_scaled,omitempty"`
	Substitutions     map[string][]string `json:"substitutions,omitempty"`
}
