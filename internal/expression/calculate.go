package expression

// Calculate runs the whole pipeline for one line of input with the default parser.
func Calculate(line string) (uint64, error) {
	return defaultParser.Calculate(line)
}

func (p *Parser) Calculate(line string) (uint64, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return 0, err
	}

	expr, err := p.Parse(tokens)
	if err != nil {
		return 0, err
	}

	return Evaluate(expr)
}
