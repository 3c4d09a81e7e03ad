package carrier

import (
	"encoding/xml"
	"strings"
)

// GLS ADE WebAPI2 SOAP payloads

const (
	glsDefaultAPIURL = "https://adeplus.gls-poland.com/adeplus/pm1/ade_webapi2.php"
	glsNamespace     = "https://adeplus.gls-poland.com/adeplus/pm1/ade_webapi2.php?wsdl"
	soapNamespace    = "http://schemas.xmlsoap.org/soap/envelope/"

	glsLabelMode = "one_label_on_a4_lt_pdf"
)

type glsEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SoapNS  string   `xml:"xmlns:soapenv,attr"`
	AdeNS   string   `xml:"xmlns:ade,attr"`
	Body    struct {
		Content any
	} `xml:"soapenv:Body"`
}

func newGLSEnvelope(content any) glsEnvelope {
	env := glsEnvelope{SoapNS: soapNamespace, AdeNS: glsNamespace}
	env.Body.Content = content
	return env
}

type glsLoginRequest struct {
	XMLName  xml.Name `xml:"ade:adeLogin"`
	Username string   `xml:"user_name"`
	Password string   `xml:"user_password"`
}

type glsLogoutRequest struct {
	XMLName xml.Name `xml:"ade:adeLogout"`
	Session string   `xml:"session"`
}

type glsServices struct {
	COD       int    `xml:"cod"`
	CODAmount string `xml:"cod_amount,omitempty"`
}

type glsConsign struct {
	RName1     string       `xml:"rname1"`
	RName2     string       `xml:"rname2,omitempty"`
	RCountry   string       `xml:"rcountry"`
	RZipcode   string       `xml:"rzipcode"`
	RCity      string       `xml:"rcity"`
	RStreet    string       `xml:"rstreet"`
	RPhone     string       `xml:"rphone"`
	RContact   string       `xml:"rcontact"`
	References string       `xml:"references"`
	Notes1     string       `xml:"notes1,omitempty"`
	Quantity   int          `xml:"quantity"`
	Weight     string       `xml:"weight"`
	Services   *glsServices `xml:"srv_bool,omitempty"`
}

type glsInsertRequest struct {
	XMLName xml.Name   `xml:"ade:adePreparingBox_Insert"`
	Session string     `xml:"session"`
	Consign glsConsign `xml:"consign_prep_data"`
}

type glsLabelsRequest struct {
	XMLName xml.Name `xml:"ade:adePreparingBox_GetConsignLabels"`
	Session string   `xml:"session"`
	ID      string   `xml:"id"`
	Mode    string   `xml:"mode"`
}

type glsConsignRequest struct {
	XMLName xml.Name `xml:"ade:adePreparingBox_GetConsign"`
	Session string   `xml:"session"`
	ID      string   `xml:"id"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type glsResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault   *soapFault        `xml:"Fault"`
		Login   *glsReturn        `xml:"adeLoginResponse"`
		Insert  *glsReturn        `xml:"adePreparingBox_InsertResponse"`
		Labels  *glsReturn        `xml:"adePreparingBox_GetConsignLabelsResponse"`
		Consign *glsConsignReturn `xml:"adePreparingBox_GetConsignResponse"`
		Logout  *glsReturn        `xml:"adeLogoutResponse"`
	} `xml:"Body"`
}

type glsReturn struct {
	Session string `xml:"return>session"`
	ID      string `xml:"return>id"`
	Labels  string `xml:"return>labels"`
}

// glsConsignReturn lists the parcels of a consignment; number is the tracking number
type glsConsignReturn struct {
	Parcels []glsParcel `xml:"return>parcels>items"`
}

type glsParcel struct {
	Number    string `xml:"number"`
	Reference string `xml:"reference"`
}

func (r *glsConsignReturn) parcelNumber() string {
	if r == nil {
		return ""
	}
	for _, p := range r.Parcels {
		if n := strings.TrimSpace(p.Number); n != "" {
			return n
		}
	}
	return ""
}
