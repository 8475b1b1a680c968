package rule

import "github.com/google/cel-go/cel"

// NewCatalogEnv creates the CEL environment rule expressions are checked against.
// Every catalog column is declared as a double variable.
func NewCatalogEnv(columns []string) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(columns))
	for _, name := range columns {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	return env, nil
}
