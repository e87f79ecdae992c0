package indicators

// Params binds every indicator window used by Apply.
type Params struct {
	SMAWindows      []int
	EMAWindows      []int
	RSIWindow       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerWindow int
	BollingerK      float64
	StochK          int
	StochD          int
}

// DefaultParams returns the dashboard's standard indicator set.
func DefaultParams() Params {
	return Params{
		SMAWindows:      []int{20, 50},
		EMAWindows:      []int{20},
		RSIWindow:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerWindow: 20,
		BollingerK:      2,
		StochK:          14,
		StochD:          3,
	}
}

// Apply computes every indicator in p, in a fixed order.
func Apply(t Table, p Params) (Table, error) {
	var err error
	for _, w := range p.SMAWindows {
		if t, err = SMA(t, w); err != nil {
			return Table{}, err
		}
	}
	for _, w := range p.EMAWindows {
		if t, err = EMA(t, w); err != nil {
			return Table{}, err
		}
	}
	if t, err = RSI(t, p.RSIWindow); err != nil {
		return Table{}, err
	}
	if t, err = MACD(t, p.MACDFast, p.MACDSlow, p.MACDSignal); err != nil {
		return Table{}, err
	}
	if t, err = Bollinger(t, p.BollingerWindow, p.BollingerK); err != nil {
		return Table{}, err
	}
	return Stochastic(t, p.StochK, p.StochD)
}
