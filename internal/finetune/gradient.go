package finetune

import "math"

// pairGradient adds the gradient of (cos(Wa, Wb) - y)² with respect to W
// into grad and returns the loss. W and grad are row-major dim×dim; u and v
// are scratch buffers of length dim.
func pairGradient(w []float64, dim int, a, b []float64, y float64, grad, u, v []float64) float64 {
	matVec(w, dim, a, u)
	matVec(w, dim, b, v)

	var uv, uu, vv float64
	for i := 0; i < dim; i++ {
		uv += u[i] * v[i]
		uu += u[i] * u[i]
		vv += v[i] * v[i]
	}
	if uu == 0 || vv == 0 {
		return y * y
	}
	nu, nv := math.Sqrt(uu), math.Sqrt(vv)
	c := uv / (nu * nv)
	diff := c - y
	scale := 2 * diff

	// dc/du = v/(|u||v|) - c·u/|u|², and symmetrically for v.
	inv := 1 / (nu * nv)
	for r := 0; r < dim; r++ {
		du := scale * (v[r]*inv - c*u[r]/uu)
		dv := scale * (u[r]*inv - c*v[r]/vv)
		row := grad[r*dim : (r+1)*dim]
		for col := 0; col < dim; col++ {
			row[col] += du*a[col] + dv*b[col]
		}
	}
	return diff * diff
}

// cosine returns cos(Wa, Wb).
func cosine(w []float64, dim int, a, b, u, v []float64) float64 {
	matVec(w, dim, a, u)
	matVec(w, dim, b, v)
	var uv, uu, vv float64
	for i := 0; i < dim; i++ {
		uv += u[i] * v[i]
		uu += u[i] * u[i]
		vv += v[i] * v[i]
	}
	if uu == 0 || vv == 0 {
		return 0
	}
	return uv / math.Sqrt(uu*vv)
}

func matVec(w []float64, dim int, x, out []float64) {
	for r := 0; r < dim; r++ {
		row := w[r*dim : (r+1)*dim]
		var sum float64
		for c, xc := range x {
			sum += row[c] * xc
		}
		out[r] = sum
	}
}
