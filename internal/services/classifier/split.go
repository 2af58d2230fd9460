package classifier

// SplitTail returns the sample indexes used for training and validation.
// Validation is the tail of the ordered samples: the first
// int(n*(1-fraction)) samples train, the rest validate.
func SplitTail(n int, fraction float64) (train, val []int) {
	if n <= 0 {
		return nil, nil
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	at := int(float64(n) * (1 - fraction))
	train = make([]int, 0, at)
	val = make([]int, 0, n-at)
	for i := 0; i < n; i++ {
		if i < at {
			train = append(train, i)
		} else {
			val = append(val, i)
		}
	}
	return train, val
}
