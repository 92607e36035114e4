package analysis

import (
	"math"
	"strings"
)

// Point is a sample in a 2D projection of state space.
type Point struct {
	X, Y float64
}

// PhasePortrait is a 2D phase-space projection of a recorded trajectory.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point
}

// PortraitFromStates projects a recorded state series onto two state
// indices, typically (theta, omega).
func PortraitFromStates(states [][]float64, xIdx, yIdx int) *PhasePortrait {
	portrait := &PhasePortrait{XIndex: xIdx, YIndex: yIdx}
	for _, s := range states {
		if xIdx >= len(s) || yIdx >= len(s) {
			continue
		}
		portrait.Points = append(portrait.Points, Point{X: s[xIdx], Y: s[yIdx]})
	}
	return portrait
}

// PoincareSection records (recordX, recordY) whenever the crossIdx variable
// crosses the threshold going upward. For a double pendulum, crossing
// theta2 through zero against (theta1, omega1) is the usual choice.
func PoincareSection(states [][]float64, crossIdx int, threshold float64, recordX, recordY int) []Point {
	points := make([]Point, 0)
	if len(states) == 0 {
		return points
	}
	if crossIdx >= len(states[0]) || recordX >= len(states[0]) || recordY >= len(states[0]) {
		return points
	}

	prev := states[0][crossIdx]
	for _, s := range states[1:] {
		curr := s[crossIdx]
		if prev < threshold && curr >= threshold {
			points = append(points, Point{X: s[recordX], Y: s[recordY]})
		}
		prev = curr
	}
	return points
}

// RenderASCII plots points on a width x height character grid with padded
// bounds and zero axes where they fall inside the view.
func RenderASCII(points []Point, width, height int) string {
	if len(points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			canvas[row][col] = '|'
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '-'
			}
		}
	}

	for _, p := range points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '*'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
