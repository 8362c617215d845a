package program

// CheckConstraints reports whether every integrity constraint holds in the
// view. A constraint is violated when some reduction of its body leaves no
// literal unresolved.
//
// Callers pass views over cloned programs; the check itself never mutates
// the program.
func CheckConstraints(v *View) (bool, error) {
	for _, c := range v.prog.constraints {
		reductions, err := ReduceConjunction(v, c.Body)
		if err != nil {
			return false, err
		}
		for _, r := range reductions {
			if len(r.Unresolved) == 0 {
				return false, nil
			}
		}
	}
	return true, nil
}
