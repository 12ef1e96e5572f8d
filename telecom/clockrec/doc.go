// Package clockrec implements symbol timing recovery for oversampled
// baseband streams.
//
// A Loop interpolates the matched-filter output twice per symbol, once
// half-way between symbols and once on the symbol centre, and moves its
// sampling phase by a first-order loop filter driven by a timing error
// detector (TED). The caller decides which TED to run and feeds the error
// back through Update, so the same loop serves decision-directed and
// non-decision-directed demodulators.
package clockrec
