package export

// sampleCSV is the stable example of the expected input schema served by the
// sample endpoint. Only first and last name are required at validation time.
const sampleCSV = `First name,Last name,Email,Title,Company,Location,Linkedin url,Company website
Ada,Lovelace,ada@analyticalengines.example.com,VP Engineering,Analytical Engines,"London, England",https://www.linkedin.com/in/ada-lovelace,https://analyticalengines.example.com
Grace,Hopper,grace@navy.example.com,Rear Admiral,US Navy,"Arlington, VA",https://www.linkedin.com/in/grace-hopper,https://navy.example.com
`

// SampleCSV returns the example input file.
func SampleCSV() []byte {
	return []byte(sampleCSV)
}
