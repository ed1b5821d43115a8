package nav

// Position diagnostics. The canonical "underground" signal is skylight on
// the first solid non-liquid block overhead; depth below the computed
// surface is only a corroborating secondary check.

// SkyExposed reports whether nothing solid sits above the agent's head.
func (c *Context) SkyExposed() bool {
	feet := c.feet()
	for dy := 1; dy <= c.Params.SurfaceScan; dy++ {
		b := c.at(feet.Offset(0, dy, 0))
		if b.Solid() {
			return false
		}
	}
	return true
}

// Underground scans upward for the first solid non-liquid block and reads
// its skylight value. No ceiling at all means surface.
func (c *Context) Underground() bool {
	feet := c.feet()
	for dy := 1; dy <= c.Params.SurfaceScan; dy++ {
		b := c.at(feet.Offset(0, dy, 0))
		if !b.Solid() {
			continue
		}
		return b.Skylight < c.Params.SkylightMin
	}
	return false
}

// SurfaceY computes the escape target for the vertical controller: one above
// the highest solid block in the agent's column within scan range.
func (c *Context) SurfaceY() int {
	feet := c.feet()
	top := feet.Y - 1
	for dy := 0; dy <= c.Params.SurfaceScan; dy++ {
		p := feet.Offset(0, dy, 0)
		if c.at(p).Solid() {
			top = p.Y
		}
	}
	return top + 1
}

// FeetInWater is true when the feet cell or the cell below is water.
func (c *Context) FeetInWater() bool {
	feet := c.feet()
	return c.at(feet).Water() || c.at(feet.Offset(0, -1, 0)).Water()
}

// Submerged is true when the head cell is liquid.
func (c *Context) Submerged() bool {
	return c.at(c.feet().Offset(0, 1, 0)).Liquid
}

// OnDryGround is true when standing on solid non-liquid ground with dry feet.
func (c *Context) OnDryGround() bool {
	feet := c.feet()
	return c.at(feet.Offset(0, -1, 0)).Solid() && !c.at(feet).Liquid
}
