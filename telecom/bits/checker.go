package bits

import mathbits "math/bits"

const (
	lockAfter   = 20
	unlockAfter = 5
)

// Checker is a self-synchronising PRBS receiver. While unlocked it loads the
// received bits into its register; after enough consecutive predicted bits
// it locks, then counts mismatches against its own prediction. Too many
// consecutive mismatches drop the lock.
type Checker struct {
	order int
	poly  uint32
	reg   uint32

	locked     bool
	okRun      int
	errRun     int
	bits       int64
	errors     int64
	lockEvents int
}

// NewChecker returns a checker for sequences produced by an LFSR of the
// same order.
func NewChecker(order int) (*Checker, error) {
	poly, err := Polynomial(order)
	if err != nil {
		return nil, err
	}
	return &Checker{order: order, poly: poly, reg: 1}, nil
}

// Process consumes received bits.
func (c *Checker) Process(received []byte) {
	for _, b := range received {
		bit := uint32(b & 1)
		predicted := uint32(mathbits.OnesCount32(c.reg&c.poly) & 1)

		if !c.locked {
			c.reg = c.reg>>1 | bit<<(c.order-1)
			if bit == predicted {
				c.okRun++
			} else {
				c.okRun = 0
			}
			if c.okRun > lockAfter {
				c.locked = true
				c.errRun = 0
				c.lockEvents++
			}
			continue
		}

		c.reg = c.reg>>1 | predicted<<(c.order-1)
		c.bits++
		if bit == predicted {
			c.errRun = 0
			continue
		}
		c.errRun++
		c.errors++
		if c.errRun > unlockAfter {
			c.locked = false
			c.okRun = 0
		}
	}
}

// Locked reports whether the checker is synchronised.
func (c *Checker) Locked() bool { return c.locked }

// BER returns the bit error rate measured while locked, or 0.5 when fewer
// than 10 bits were checked or the checker is unlocked.
func (c *Checker) BER() float64 {
	if !c.locked || c.bits < 10 {
		return 0.5
	}
	return float64(c.errors) / float64(c.bits)
}

// Counts returns the number of bits checked and errors found while locked.
func (c *Checker) Counts() (bits, errors int64) { return c.bits, c.errors }

// Reset drops the lock and clears the counters.
func (c *Checker) Reset() {
	c.locked = false
	c.okRun = 0
	c.errRun = 0
	c.bits = 0
	c.errors = 0
}
