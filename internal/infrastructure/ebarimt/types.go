package ebarimt

import "github.com/shopspring/decimal"

// Wire types of PosAPI 3.0. Field names follow the daemon's JSON exactly.

type receiptItemPayload struct {
	Name               string          `json:"name"`
	BarCode            string          `json:"barCode,omitempty"`
	BarCodeType        string          `json:"barCodeType"`
	ClassificationCode string          `json:"classificationCode"`
	TaxProductCode     string          `json:"taxProductCode,omitempty"`
	MeasureUnit        string          `json:"measureUnit"`
	Qty                decimal.Decimal `json:"qty"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	TotalVAT           decimal.Decimal `json:"totalVAT"`
	TotalCityTax       decimal.Decimal `json:"totalCityTax"`
}

type receiptPayload struct {
	TaxType      string               `json:"taxType"`
	TotalAmount  decimal.Decimal      `json:"totalAmount"`
	TotalVAT     decimal.Decimal      `json:"totalVAT"`
	TotalCityTax decimal.Decimal      `json:"totalCityTax"`
	Items        []receiptItemPayload `json:"items"`
}

type saveReceiptPayload struct {
	TotalAmount  decimal.Decimal  `json:"totalAmount"`
	TotalVAT     decimal.Decimal  `json:"totalVAT"`
	TotalCityTax decimal.Decimal  `json:"totalCityTax"`
	DistrictCode string           `json:"districtCode"`
	MerchantTin  string           `json:"merchantTin"`
	PosNo        string           `json:"posNo"`
	BranchNo     string           `json:"branchNo"`
	CustomerTin  string           `json:"customerTin,omitempty"`
	ConsumerNo   string           `json:"consumerNo,omitempty"`
	Type         string           `json:"type"`
	BillIDSuffix string           `json:"billIdSuffix,omitempty"`
	Receipts     []receiptPayload `json:"receipts"`
}

type saveReceiptResult struct {
	ID           string          `json:"id"`
	PosID        int64           `json:"posId"`
	Status       string          `json:"status"`
	Message      string          `json:"message"`
	Lottery      string          `json:"lottery"`
	QRData       string          `json:"qrData"`
	Date         string          `json:"date"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	TotalVAT     decimal.Decimal `json:"totalVAT"`
	TotalCityTax decimal.Decimal `json:"totalCityTax"`
}

type deleteReceiptPayload struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

type infoResult struct {
	OperatorTIN  string `json:"operatorTin"`
	OperatorName string `json:"operatorName"`
	Merchants    []struct {
		TIN      string `json:"tin"`
		Name     string `json:"name"`
		VatPayer bool   `json:"vatPayer"`
		CityTax  bool   `json:"cityTax"`
	} `json:"merchants"`
	BranchInfos []struct {
		BranchNo     string `json:"branchNo"`
		PosNo        string `json:"posNo"`
		DistrictCode string `json:"districtCode"`
		Name         string `json:"name"`
	} `json:"branchInfos"`
}

type bankAccountsResult struct {
	Accounts []struct {
		AccountNo string `json:"accountNo"`
		BankCode  string `json:"bankCode"`
		IsDefault bool   `json:"isDefault"`
	} `json:"accounts"`
}

// TPI wire types

type tokenResult struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

type taxpayerInfoResult struct {
	Data struct {
		TIN       string `json:"tin"`
		Name      string `json:"name"`
		VatPayer  bool   `json:"vatPayer"`
		CityPayer bool   `json:"cityPayer"`
		Found     bool   `json:"found"`
	} `json:"data"`
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

type tinInfoResult struct {
	Data   string `json:"data"`
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

type branchInfoResult struct {
	Data []struct {
		BranchNo     string `json:"branchNo"`
		PosNo        string `json:"posNo"`
		DistrictCode string `json:"districtCode"`
		Name         string `json:"name"`
	} `json:"data"`
	Status int `json:"status"`
}

type productTaxCodeResult struct {
	Data []struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		VatType string `json:"vatType"`
		CityTax bool   `json:"cityTax"`
	} `json:"data"`
	Status int `json:"status"`
}

type stockQRResult struct {
	Data struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		VatType string `json:"vatType"`
		CityTax bool   `json:"cityTax"`
	} `json:"data"`
	Status int `json:"status"`
}

type saveOprMerchantsPayload struct {
	Merchants []oprMerchantPayload `json:"merchants"`
}

type oprMerchantPayload struct {
	TIN   string `json:"tin"`
	RegNo string `json:"regNo"`
	Name  string `json:"name"`
}
